package aio_test

import (
	"testing"
	"time"

	"github.com/b97tsk/aio"
	"github.com/stretchr/testify/require"
)

func TestWaitForCompletesInTime(t *testing.T) {
	l := aio.NewLoop()

	task := sleepTask(l, 10*time.Millisecond, "done")
	v, err := l.RunUntilDone(aio.WaitFor(l, time.Hour, task))
	require.NoError(t, err)
	require.Equal(t, "done", v)
}

func TestWaitForErrorPropagates(t *testing.T) {
	l := aio.NewLoop()

	task := failTask(l, 10*time.Millisecond, errOops)
	_, err := l.RunUntilDone(aio.WaitFor(l, time.Hour, task))
	require.ErrorIs(t, err, errOops)
}

func TestWaitForTimeoutCancelsAwaitable(t *testing.T) {
	l := aio.NewLoop()

	task := sleepTask(l, time.Hour, nil)
	_, err := l.RunUntilDone(aio.WaitFor(l, 20*time.Millisecond, task))
	require.ErrorIs(t, err, aio.ErrTimeout)
	require.True(t, task.Cancelled(), "a timed-out wait does not leave its awaitable running")
}

func TestWaitForTimeoutAfterSuppressedCancellation(t *testing.T) {
	l := aio.NewLoop()

	// The task refuses to be cancelled; the wait still times out, but
	// only once the task actually finished.
	task := aio.NewTask(l, aio.Generator(func(g *aio.Gen) (any, error) {
		if _, err := g.Await(aio.Sleep(l, time.Hour, nil)); err != nil {
			return "survived", nil
		}
		return nil, nil
	}))

	_, err := l.RunUntilDone(aio.WaitFor(l, 20*time.Millisecond, task))
	require.ErrorIs(t, err, aio.ErrTimeout)
	require.True(t, task.Done())
	require.False(t, task.Cancelled())

	v, err := task.Result()
	require.NoError(t, err)
	require.Equal(t, "survived", v)
}

func TestWaitForZeroTimeout(t *testing.T) {
	l := aio.NewLoop()

	t.Run("AlreadyDone", func(t *testing.T) {
		f := l.NewFuture()
		require.NoError(t, f.SetResult(1))
		v, err := l.RunUntilDone(aio.WaitFor(l, 0, f))
		require.NoError(t, err)
		require.Equal(t, 1, v)
	})
	t.Run("StillPending", func(t *testing.T) {
		task := sleepTask(l, time.Hour, nil)
		_, err := l.RunUntilDone(aio.WaitFor(l, 0, task))
		require.ErrorIs(t, err, aio.ErrTimeout)
		require.True(t, task.Cancelled())
	})
}

func TestWaitForOuterCancelReachesAwaitable(t *testing.T) {
	l := aio.NewLoop()

	task := sleepTask(l, time.Hour, nil)
	outer := aio.WaitFor(l, time.Hour, task)

	l.Run()
	require.True(t, outer.Cancel())

	_, err := l.RunUntilDone(task)
	require.ErrorIs(t, err, aio.ErrCancelled)
}
