package aio_test

import (
	"testing"
	"time"

	"github.com/b97tsk/aio"
	"github.com/stretchr/testify/require"
)

func TestSleepDelivers(t *testing.T) {
	l := aio.NewLoop()

	start := time.Now()
	v, err := l.RunUntilDone(aio.Sleep(l, 20*time.Millisecond, "wakeup"))
	require.NoError(t, err)
	require.Equal(t, "wakeup", v)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepZero(t *testing.T) {
	l := aio.NewLoop()

	f := aio.Sleep(l, 0, "now")
	require.False(t, f.Done(), "even a zero sleep takes a scheduler pass")

	v, err := l.RunUntilDone(f)
	require.NoError(t, err)
	require.Equal(t, "now", v)
}

func TestSleepCancelStopsTimer(t *testing.T) {
	l := aio.NewLoop()

	f := aio.Sleep(l, time.Hour, nil)
	require.True(t, f.Cancel())

	start := time.Now()
	_, err := l.RunUntilDone(f)
	require.ErrorIs(t, err, aio.ErrCancelled)
	require.Less(t, time.Since(start), time.Minute)
}

func TestEnsureFuture(t *testing.T) {
	l := aio.NewLoop()

	t.Run("Awaitable", func(t *testing.T) {
		f := l.NewFuture()
		require.Same(t, f, aio.EnsureFuture(l, f))
	})
	t.Run("ForeignAwaitable", func(t *testing.T) {
		other := aio.NewLoop()
		require.Panics(t, func() { aio.EnsureFuture(l, other.NewFuture()) })
	})
	t.Run("Coroutine", func(t *testing.T) {
		aw := aio.EnsureFuture(l, noopCoro())
		_, ok := aw.(*aio.Task)
		require.True(t, ok)
		_, err := l.RunUntilDone(aw)
		require.NoError(t, err)
	})
	t.Run("GeneratorFunc", func(t *testing.T) {
		aw := aio.EnsureFuture(l, func(g *aio.Gen) (any, error) { return "gen", nil })
		v, err := l.RunUntilDone(aw)
		require.NoError(t, err)
		require.Equal(t, "gen", v)
	})
	t.Run("Junk", func(t *testing.T) {
		require.Panics(t, func() { aio.EnsureFuture(l, 42) })
	})
}
