package aio_test

import (
	"testing"
	"time"

	"github.com/b97tsk/aio"
	"github.com/stretchr/testify/require"
)

func TestShieldMirrorsOutcome(t *testing.T) {
	l := aio.NewLoop()

	v, err := l.RunUntilDone(aio.Shield(l, sleepTask(l, 10*time.Millisecond, "inner")))
	require.NoError(t, err)
	require.Equal(t, "inner", v)

	_, err = l.RunUntilDone(aio.Shield(l, failTask(l, 10*time.Millisecond, errOops)))
	require.ErrorIs(t, err, errOops)
}

func TestShieldProtectsInner(t *testing.T) {
	l := aio.NewLoop()

	inner := sleepTask(l, 30*time.Millisecond, "survived")
	outer := aio.Shield(l, inner)

	l.Run()
	require.True(t, outer.Cancel())
	l.Run()
	require.True(t, outer.Cancelled())
	require.False(t, inner.Done(), "the shield absorbs the cancellation")

	v, err := l.RunUntilDone(inner)
	require.NoError(t, err)
	require.Equal(t, "survived", v)
}

func TestShieldInnerCancelPropagatesOut(t *testing.T) {
	l := aio.NewLoop()

	inner := sleepTask(l, time.Hour, nil)
	outer := aio.Shield(l, inner)

	l.Run()
	inner.Cancel()

	_, err := l.RunUntilDone(outer)
	require.ErrorIs(t, err, aio.ErrCancelled)
	require.True(t, outer.Cancelled())
}

func TestShieldOnDoneAwaitable(t *testing.T) {
	l := aio.NewLoop()

	f := l.NewFuture()
	require.NoError(t, f.SetResult(1))
	require.Same(t, f, aio.Shield(l, f))
}

func TestShieldWrapsGeneratorFunc(t *testing.T) {
	l := aio.NewLoop()

	v, err := l.RunUntilDone(aio.Shield(l, func(g *aio.Gen) (any, error) {
		return "wrapped", nil
	}))
	require.NoError(t, err)
	require.Equal(t, "wrapped", v)
}
