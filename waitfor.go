package aio

import (
	"context"
	"time"
)

// WaitFor returns a [Future] that completes with aw's outcome, unless
// d elapses first, in which case aw is cancelled and the returned
// future fails with [ErrTimeout].
//
// If aw completes within the deadline, its result or error propagates
// unchanged. On timeout, WaitFor waits for aw's cancellation to
// actually finish before failing, so aw never keeps running behind a
// timed-out wait. Cancelling the returned future cancels aw.
//
// A non-positive d denies aw any time at all: if aw is already done
// its outcome propagates, otherwise it is cancelled immediately.
func WaitFor(s Scheduler, d time.Duration, aw Awaitable) *Future {
	if aw.Scheduler() != s {
		panic("aio: awaitable belongs to a different scheduler")
	}

	outer := s.NewFuture()

	if d <= 0 {
		s.CallSoon(context.Background(), func() {
			if outer.Done() {
				return
			}
			if aw.Done() {
				copyResult(aw, outer)
				return
			}
			aw.Cancel()
			aw.AddDoneCallback(func(Awaitable) {
				if !outer.Done() {
					outer.SetError(ErrTimeout)
				}
			})
		})
		return outer
	}

	w := &deadlineWaiter{outer: outer, aw: aw}
	w.handle = aw.AddDoneCallback(w.innerDone)
	w.timer = s.CallLater(context.Background(), d, w.timedOut)

	outer.AddDoneCallback(func(o Awaitable) {
		if o.Cancelled() {
			w.detach()
			aw.Cancel()
		}
	})

	return outer
}

type deadlineWaiter struct {
	outer  *Future
	aw     Awaitable
	handle CallbackHandle
	timer  Timer
}

func (w *deadlineWaiter) innerDone(aw Awaitable) {
	if w.outer.Done() {
		return
	}
	w.timer.Cancel()
	copyResult(aw, w.outer)
}

func (w *deadlineWaiter) timedOut() {
	if w.outer.Done() {
		return
	}
	w.detach()
	if w.aw.Done() {
		copyResult(w.aw, w.outer)
		return
	}
	// Fail only after the cancellation lands, so nothing keeps
	// running behind a timed-out wait.
	w.aw.AddDoneCallback(func(Awaitable) {
		if !w.outer.Done() {
			w.outer.SetError(ErrTimeout)
		}
	})
	w.aw.Cancel()
}

func (w *deadlineWaiter) detach() {
	w.timer.Cancel()
	if w.handle != 0 {
		w.aw.RemoveDoneCallback(w.handle)
		w.handle = 0
	}
}
