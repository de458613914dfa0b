package aio

import (
	"context"
	"iter"
	"time"
)

// AsCompleted returns an iterator yielding one [Future] per distinct
// awaitable in fs, in the order they complete rather than the order
// they were passed. Each yielded future carries the outcome of
// whichever awaitable finished next, not necessarily the one at the
// same position.
//
// If d is positive and elapses before every awaitable completes,
// results that arrived in time remain consumable and every other yield
// fails with [ErrTimeout]; the awaitables themselves are left running. A non-positive d means no deadline.
//
// The iterator is single use and must be consumed on s, typically
// from a coroutine. It is a usage error to range over it twice.
func AsCompleted(s Scheduler, d time.Duration, fs ...Awaitable) iter.Seq[*Future] {
	a := new(asCompleted)

	seen := make(map[Awaitable]bool, len(fs))
	for _, f := range fs {
		if f.Scheduler() != s {
			panic("aio: awaitable belongs to a different scheduler")
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		a.left++
		f.AddDoneCallback(a.childDone)
	}

	if d > 0 && a.left > 0 {
		a.timer = s.CallLater(context.Background(), d, a.timedOut)
	}

	n := a.left

	return func(yield func(*Future) bool) {
		if a.consumed {
			panic("aio: AsCompleted iterator ranged over twice")
		}
		a.consumed = true
		for range n {
			w := s.NewFuture()
			switch {
			case len(a.ready) > 0:
				// Results that arrived before the deadline stay
				// consumable after it.
				c := a.ready[0]
				a.ready = a.ready[1:]
				copyResult(c, w)
			case a.out:
				w.SetError(ErrTimeout)
			default:
				a.waiting = append(a.waiting, w)
			}
			if !yield(w) {
				return
			}
		}
	}
}

type asCompleted struct {
	ready    []Awaitable
	waiting  []*Future
	left     int
	timer    Timer
	out      bool
	consumed bool
}

func (a *asCompleted) childDone(aw Awaitable) {
	if a.out {
		// Timed out already; the straggler's error counts as
		// retrieved.
		if !aw.Cancelled() {
			aw.Err()
		}
		return
	}
	a.left--
	if a.left == 0 && a.timer != nil {
		a.timer.Cancel()
	}
	if len(a.waiting) > 0 {
		w := a.waiting[0]
		a.waiting = a.waiting[1:]
		copyResult(aw, w)
		return
	}
	a.ready = append(a.ready, aw)
}

func (a *asCompleted) timedOut() {
	a.out = true
	for _, w := range a.waiting {
		w.SetError(ErrTimeout)
	}
	a.waiting = nil
}
