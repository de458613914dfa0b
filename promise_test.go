package aio_test

import (
	"testing"
	"time"

	"github.com/b97tsk/aio"
	"github.com/stretchr/testify/require"
)

func TestSubmitFromForeignGoroutine(t *testing.T) {
	l := aio.NewLoop()
	l.Autorun(l.Run)

	p := aio.Submit(l, aio.Generator(func(g *aio.Gen) (any, error) {
		if _, err := g.Await(aio.Sleep(l, 10*time.Millisecond, nil)); err != nil {
			return nil, err
		}
		return 42, nil
	}))

	v, err := p.Result()
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err, ok := p.TryResult()
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSubmitError(t *testing.T) {
	l := aio.NewLoop()
	l.Autorun(l.Run)

	p := aio.Submit(l, aio.Generator(func(g *aio.Gen) (any, error) {
		return nil, errOops
	}))

	_, err := p.Result()
	require.ErrorIs(t, err, errOops)
}

func TestPromiseCancel(t *testing.T) {
	l := aio.NewLoop()
	l.Autorun(l.Run)

	p := aio.Submit(l, aio.Generator(func(g *aio.Gen) (any, error) {
		return g.Await(aio.Sleep(l, time.Hour, nil))
	}))

	// Let the task reach its suspension point first.
	time.Sleep(20 * time.Millisecond)
	p.Cancel()

	_, err := p.Result()
	require.ErrorIs(t, err, aio.ErrCancelled)
}

func TestPromiseTryResultPending(t *testing.T) {
	l := aio.NewLoop()
	l.Autorun(l.Run)

	p := aio.Submit(l, aio.Generator(func(g *aio.Gen) (any, error) {
		return g.Await(aio.Sleep(l, time.Hour, nil))
	}))

	_, _, ok := p.TryResult()
	require.False(t, ok)

	p.Cancel()
	<-p.Done()
}
