// Package aio is a library for cooperative, single-threaded concurrency
// built around futures and tasks.
//
// Since Go has already done a great job in bringing green/virtual
// threads into life, this library only implements schedulers of the
// cooperative kind, where callbacks and coroutine steps run one at a
// time on a single logical thread. [Loop] is the scheduler this library
// ships; one can create as many loops as they like, or plug in their
// own [Scheduler].
//
// # Futures
//
// A [Future] is the deferred-result primitive everything else builds
// on. It starts out pending and moves to exactly one of two terminal
// states: cancelled, or finished with a result or an error. Completing
// a future schedules its done callbacks; nothing runs inline, so a
// callback never observes a half-made transition.
//
// Futures are not safe for concurrent use. They must only be touched
// from their scheduler's callbacks. [Promise] is the goroutine-safe
// handle for crossing that boundary, and [Submit] is the one entry
// point meant to be called from other goroutines.
//
// # Tasks and Coroutines
//
// A [Coroutine] is a resumable unit of work: each resume returns a
// [Step] saying whether the coroutine returned, failed, wants to wait
// on some awaitable, or merely yields the thread. [Task] drives a
// coroutine to completion, stepping it whenever the thing it awaits
// completes. A task is itself a [Future], so tasks compose with every
// combinator in this package.
//
// Writing a [Coroutine] by hand means writing an explicit state
// machine. [Generator] offers the straight-line alternative: it runs an
// ordinary function on its own goroutine in lock step with the task,
// so the function can call [Gen.Await] mid-body and read results off
// awaitables as plain return values.
//
// # Cancellation Is a Request
//
// Cancelling a task does not kill it. It arranges for the next resume
// to carry [ErrCancelled], and the coroutine decides what to do with
// it: let it through, clean up first, or suppress it and finish
// normally. Only when the cancellation actually propagates out does
// the task end up cancelled. [Shield] exists for the opposite need,
// protecting an inner computation from an outer cancellation.
//
// # Composition
//
// [Wait], [WaitFor], [Gather], [GatherAll], [AsCompleted], [Sleep] and
// [Shield] combine awaitables into bigger ones. They follow one rule:
// a combinator owns only the futures it creates. Except where
// cancellation is the documented point ([WaitFor] on timeout, a
// cancelled [Gather]), a combinator never disturbs the awaitables it
// was given.
//
// # Diagnostics
//
// Mistakes in future-based code like to vanish silently. Two of them
// are caught at garbage-collection time: an error that was set on a
// future but never retrieved, and a task collected while still
// pending. Both are reported through the scheduler's error handler,
// with the construction-site stack attached when the scheduler is in
// debug mode.
package aio
