package aio

import (
	"context"
	"log/slog"
	"time"
)

// A Scheduler is the run-loop seam the core drives everything through:
// it runs callbacks later, runs callbacks after a delay, and mints
// pending futures bound to itself.
//
// [Loop] is the implementation this module ships; anything satisfying
// the interface works, e.g. a reactor that also waits on I/O readiness.
//
// Implementations must execute callbacks one at a time (the model is
// strictly single-threaded cooperative multitasking), must run them in
// the order scheduled, and must accept CallSoon from foreign goroutines;
// that is what the thread-safe submission entry point builds on.
//
// A Scheduler value must be comparable (implement it on a pointer type):
// the core keys the current-task slot by Scheduler instance.
type Scheduler interface {
	// CallSoon schedules fn to run on a later scheduler cycle, never
	// re-entrantly. ctx is the execution context the callback was
	// registered with; implementations may use it for tracing but must
	// not drop the callback when it expires.
	CallSoon(ctx context.Context, fn func())

	// CallLater schedules fn to run once d has elapsed and returns a
	// handle that can cancel the timer before it fires.
	CallLater(ctx context.Context, d time.Duration, fn func()) Timer

	// NewFuture returns a new pending [Future] bound to this scheduler.
	NewFuture() *Future

	// Debug reports whether construction-site stack traces are captured
	// for diagnostics.
	Debug() bool
}

// A Timer is a cancellable handle returned by [Scheduler.CallLater].
type Timer interface {
	// Cancel stops the timer. It reports false if the timer already
	// fired or was already cancelled.
	Cancel() bool
}

// An ErrorEvent describes a diagnostic condition that has no caller left
// to report it to: an error stored on a future that was never retrieved,
// a task garbage-collected while still pending, or a callback panic.
type ErrorEvent struct {
	Message string
	Err     error  // underlying error, if any
	Stack   []byte // construction-site stack, captured in debug mode
}

// An ErrorReporter receives diagnostic events. A [Scheduler] that also
// implements ErrorReporter gets every event raised for futures and tasks
// bound to it; otherwise events go to [log/slog].
//
// HandleError must be safe for concurrent use: unretrieved-error events
// originate on the runtime's cleanup goroutine.
type ErrorReporter interface {
	HandleError(ev ErrorEvent)
}

func reportError(s Scheduler, ev ErrorEvent) {
	if r, ok := s.(ErrorReporter); ok {
		r.HandleError(ev)
		return
	}
	logError(ev)
}

func logError(ev ErrorEvent) {
	attrs := make([]any, 0, 4)
	if ev.Err != nil {
		attrs = append(attrs, "err", ev.Err)
	}
	if ev.Stack != nil {
		attrs = append(attrs, "stack", string(ev.Stack))
	}
	slog.Error(ev.Message, attrs...)
}
