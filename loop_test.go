package aio_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/b97tsk/aio"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsCallbacksInOrder(t *testing.T) {
	l := aio.NewLoop()

	var order []int
	for i := 1; i <= 5; i++ {
		l.CallSoon(context.Background(), func() { order = append(order, i) })
	}

	l.Run()
	require.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestLoopCallSoonFromCallback(t *testing.T) {
	l := aio.NewLoop()

	var order []string
	l.CallSoon(context.Background(), func() {
		order = append(order, "outer")
		l.CallSoon(context.Background(), func() { order = append(order, "inner") })
	})

	l.Run()
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestLoopTimersFireInDeadlineOrder(t *testing.T) {
	l := aio.NewLoop()

	var order []string
	done := l.NewFuture()
	l.CallLater(context.Background(), 50*time.Millisecond, func() {
		order = append(order, "second")
		_ = done.SetResult(nil)
	})
	l.CallLater(context.Background(), 10*time.Millisecond, func() {
		order = append(order, "first")
	})

	_, err := l.RunUntilDone(done)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestLoopTimerCancel(t *testing.T) {
	l := aio.NewLoop()

	fired := false
	timer := l.CallLater(context.Background(), 10*time.Millisecond, func() { fired = true })
	require.True(t, timer.Cancel())
	require.False(t, timer.Cancel())

	done := l.NewFuture()
	l.CallLater(context.Background(), 30*time.Millisecond, func() { _ = done.SetResult(nil) })

	_, err := l.RunUntilDone(done)
	require.NoError(t, err)
	require.False(t, fired)
}

func TestLoopCallSoonFromForeignGoroutine(t *testing.T) {
	l := aio.NewLoop()

	f := l.NewFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.CallSoon(context.Background(), func() { _ = f.SetResult("hi") })
	}()

	v, err := l.RunUntilDone(f)
	require.NoError(t, err)
	require.Equal(t, "hi", v)
}

func TestLoopAutorun(t *testing.T) {
	l := aio.NewLoop()

	var wg sync.WaitGroup
	l.Autorun(l.Run)

	wg.Add(1)
	l.CallSoon(context.Background(), wg.Done)
	wg.Wait()

	wg.Add(1)
	l.CallLater(context.Background(), 10*time.Millisecond, wg.Done)
	wg.Wait()
}

func TestLoopCallbackPanicIsReported(t *testing.T) {
	l := aio.NewLoop()

	var events []aio.ErrorEvent
	l.SetErrorHandler(func(ev aio.ErrorEvent) { events = append(events, ev) })

	survived := false
	l.CallSoon(context.Background(), func() { panic("kaboom") })
	l.CallSoon(context.Background(), func() { survived = true })

	l.Run()
	require.True(t, survived, "a panicking callback must not take the loop down")
	require.Len(t, events, 1)
	require.ErrorContains(t, events[0].Err, "kaboom")
}

func TestLoopDebugFlag(t *testing.T) {
	l := aio.NewLoop()
	require.False(t, l.Debug())
	l.SetDebug(true)
	require.True(t, l.Debug())
}
