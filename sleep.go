package aio

import (
	"context"
	"time"
)

// Sleep returns a [Future] that completes with result after d elapses.
// If d is not positive, the future completes on the next scheduler
// pass without consulting the clock.
//
// Cancelling the returned future before the delay elapses stops the
// underlying timer.
func Sleep(s Scheduler, d time.Duration, result any) *Future {
	f := s.NewFuture()

	if d <= 0 {
		s.CallSoon(context.Background(), func() {
			setResultUnlessCancelled(f, result)
		})
		return f
	}

	timer := s.CallLater(context.Background(), d, func() {
		setResultUnlessCancelled(f, result)
	})

	f.AddDoneCallback(func(aw Awaitable) {
		if aw.Cancelled() {
			timer.Cancel()
		}
	})

	return f
}

// EnsureFuture wraps v in something awaitable on s.
//
// If v is already an [Awaitable], it is returned as is; it is a usage
// error for it to belong to a different scheduler. A [Coroutine] or a
// generator function is wrapped in a new [Task], which schedules its
// execution. Any other value causes a panic.
func EnsureFuture(s Scheduler, v any) Awaitable {
	switch v := v.(type) {
	case Awaitable:
		if v.Scheduler() != s {
			panic("aio: awaitable belongs to a different scheduler")
		}
		return v
	case Coroutine:
		return NewTask(s, v)
	case func(*Gen) (any, error):
		return NewTask(s, Generator(v))
	default:
		panic("aio: EnsureFuture requires an Awaitable, a Coroutine or a generator function")
	}
}
