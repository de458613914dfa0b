package aio

import (
	"context"
	"time"
)

// A ReturnWhen value tells [Wait] when to resolve.
type ReturnWhen int

const (
	// AllCompleted resolves the wait once every awaitable completes.
	AllCompleted ReturnWhen = iota
	// FirstCompleted resolves the wait as soon as any awaitable
	// completes.
	FirstCompleted
	// FirstError resolves the wait as soon as any awaitable fails
	// with an error other than [ErrCancelled]; if none fails, it
	// behaves like AllCompleted.
	FirstError
)

// WaitResult partitions the awaitables handed to [Wait] at the moment
// the wait resolved.
type WaitResult struct {
	Done    []Awaitable
	Pending []Awaitable
}

// Wait returns a [Future] that resolves with a [WaitResult] once the
// condition given by when holds over fs.
//
// Wait never cancels or otherwise disturbs the given awaitables; the
// ones still running when the wait resolves come back in the Pending
// slice. It is a usage error to pass an empty fs, or an awaitable
// that belongs to a different scheduler.
func Wait(s Scheduler, when ReturnWhen, fs ...Awaitable) *Future {
	return WaitTimeout(s, when, 0, fs...)
}

// WaitTimeout is like [Wait] but additionally resolves after d
// elapses, whatever the state of fs. A timeout is not a failure: the
// future still succeeds, with the incomplete awaitables in Pending.
// A non-positive d means no timeout.
func WaitTimeout(s Scheduler, when ReturnWhen, d time.Duration, fs ...Awaitable) *Future {
	if len(fs) == 0 {
		panic("aio: Wait requires at least one awaitable")
	}
	for _, f := range fs {
		if f.Scheduler() != s {
			panic("aio: awaitable belongs to a different scheduler")
		}
	}

	w := &waiter{
		outer: s.NewFuture(),
		fs:    fs,
		when:  when,
		left:  len(fs),
	}
	w.handles = make([]CallbackHandle, len(fs))

	if d > 0 {
		w.timer = s.CallLater(context.Background(), d, w.resolve)
	}

	for i, f := range fs {
		w.handles[i] = f.AddDoneCallback(w.childDone)
	}
	w.outer.AddDoneCallback(func(aw Awaitable) {
		if aw.Cancelled() {
			w.detach()
		}
	})

	return w.outer
}

type waiter struct {
	outer   *Future
	fs      []Awaitable
	handles []CallbackHandle
	when    ReturnWhen
	left    int
	timer   Timer
}

func (w *waiter) childDone(aw Awaitable) {
	if w.outer.Done() {
		return
	}
	w.left--
	switch {
	case w.left == 0:
	case w.when == FirstCompleted:
	case w.when == FirstError && !aw.Cancelled() && aw.Err() != nil:
	default:
		return
	}
	w.resolve()
}

func (w *waiter) resolve() {
	if w.outer.Done() {
		return
	}
	w.detach()
	var r WaitResult
	for _, f := range w.fs {
		if f.Done() {
			r.Done = append(r.Done, f)
		} else {
			r.Pending = append(r.Pending, f)
		}
	}
	w.outer.SetResult(r)
}

func (w *waiter) detach() {
	if w.timer != nil {
		w.timer.Cancel()
		w.timer = nil
	}
	for i, f := range w.fs {
		if w.handles[i] != 0 {
			f.RemoveDoneCallback(w.handles[i])
			w.handles[i] = 0
		}
	}
}
