package aio

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

// State is the lifecycle state of a [Future].
//
// Transitions are monotonic and one-directional: Pending moves to either
// Cancelled or Finished, and nothing leaves a terminal state.
type State int32

const (
	Pending State = iota
	Cancelled
	Finished
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Cancelled:
		return "cancelled"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// A Callback is run when a future reaches a terminal state. It receives
// the completed awaitable, which for a [Task] is the task itself.
type Callback func(aw Awaitable)

// A CallbackHandle identifies one registered [Callback] for removal.
// Go func values are not comparable, so registration hands back a handle
// instead of matching on the function itself.
type CallbackHandle uint64

var callbackID atomic.Uint64

type callbackEntry struct {
	id  CallbackHandle
	ctx context.Context
	fn  Callback
}

// An Awaitable is the public contract shared by [Future], [Task] and the
// aggregates the combinators build. Exactly one producer completes it;
// any number of consumers observe it through Result, Err and done
// callbacks.
type Awaitable interface {
	// Scheduler returns the scheduler the awaitable is bound to.
	Scheduler() Scheduler

	// State returns the current lifecycle state.
	State() State

	// Done reports whether the awaitable reached a terminal state.
	Done() bool

	// Cancelled reports whether the awaitable was cancelled.
	Cancelled() bool

	// Cancel requests cancellation. It reports false if the awaitable
	// is already done. For a [Task] this is a request only; see
	// [Task.Cancel].
	Cancel() bool

	// Result returns the stored value.
	// It fails with [ErrCancelled] on a cancelled awaitable, with
	// [ErrInvalidState] on a pending one, and with the stored error on
	// one that finished in error.
	Result() (any, error)

	// Err returns the stored error (nil when finished successfully).
	// Like Result, it fails with [ErrCancelled] when cancelled and
	// [ErrInvalidState] when still pending.
	Err() error

	// AddDoneCallback registers fn to run when the awaitable completes.
	// If it is already done, fn is scheduled immediately instead of
	// being appended.
	AddDoneCallback(fn Callback) CallbackHandle

	// AddDoneCallbackContext is AddDoneCallback with an explicit
	// execution context carried to [Scheduler.CallSoon].
	AddDoneCallbackContext(ctx context.Context, fn Callback) CallbackHandle

	// RemoveDoneCallback removes the callbacks registered under the
	// given handles and returns how many were removed.
	RemoveDoneCallback(hs ...CallbackHandle) int

	base() *Future
}

// A Future is a single-assignment, observe-many result container with
// explicit terminal states: the deferred-result primitive everything
// else is built on.
//
// A Future must only be mutated from its scheduler's callbacks; it is
// not safe for concurrent use. [Promise] is the thread-safe handle for
// crossing goroutine boundaries.
type Future struct {
	sched     Scheduler
	owner     Awaitable
	state     State
	result    any
	err       error
	callbacks []callbackEntry
	blocking  bool
	trace     *errTrace
	created   []byte // construction-site stack, debug mode only
}

// NewFuture returns a new pending future bound to s.
// Most callers use [Scheduler.NewFuture] instead.
func NewFuture(s Scheduler) *Future {
	f := new(Future)
	f.init(s, nil)
	return f
}

func (f *Future) init(s Scheduler, owner Awaitable) {
	if s == nil {
		panic("aio: nil Scheduler")
	}
	f.sched = s
	f.owner = owner
	if owner == nil {
		f.owner = f
	}
	if s.Debug() {
		f.created = debug.Stack()
	}
}

func (f *Future) base() *Future { return f }

// Scheduler returns the scheduler f is bound to.
func (f *Future) Scheduler() Scheduler { return f.sched }

// State returns the current lifecycle state of f.
func (f *Future) State() State { return f.state }

// Done reports whether f is cancelled or finished.
func (f *Future) Done() bool { return f.state != Pending }

// Cancelled reports whether f was cancelled.
func (f *Future) Cancelled() bool { return f.state == Cancelled }

// Cancel cancels f and schedules its callbacks.
// It reports false if f is already done.
//
// A Future embedded in a larger awaitable (a [Task], an aggregate)
// forwards cancellation to the owner, so cancelling through the
// embedded Future and cancelling the owner behave the same.
func (f *Future) Cancel() bool {
	if f.owner != nil && f.owner != Awaitable(f) {
		return f.owner.Cancel()
	}
	return f.cancelBase()
}

func (f *Future) cancelBase() bool {
	if f.state != Pending {
		return false
	}
	f.state = Cancelled
	f.drainCallbacks()
	return true
}

// SetResult marks f finished and stores its result.
// It fails with [ErrInvalidState] unless f is pending.
func (f *Future) SetResult(v any) error {
	if f.state != Pending {
		return invalidState("SetResult on %s future", f.state)
	}
	f.result = v
	f.state = Finished
	f.drainCallbacks()
	return nil
}

// SetError marks f finished and stores err.
// It fails with [ErrInvalidState] unless f is pending, and rejects a nil
// error and the [ErrExhausted] sentinel, which only has meaning inside
// the coroutine resume protocol.
func (f *Future) SetError(err error) error {
	if f.state != Pending {
		return invalidState("SetError on %s future", f.state)
	}
	if err == nil {
		return errors.New("aio: SetError with nil error")
	}
	if errors.Is(err, ErrExhausted) {
		return errors.New("aio: ErrExhausted interacts badly with coroutines and cannot be set on a future")
	}
	f.err = err
	f.state = Finished
	f.trace = newErrTrace(f, err)
	f.drainCallbacks()
	return nil
}

// Result returns the value f holds.
//
// It fails with [ErrCancelled] if f was cancelled, with
// [ErrInvalidState] if f is still pending, and with the stored error if
// f finished in error. Retrieving the error this way clears the
// unretrieved-error diagnostic.
func (f *Future) Result() (any, error) {
	switch f.state {
	case Cancelled:
		return nil, ErrCancelled
	case Pending:
		return nil, invalidState("result is not ready")
	}
	if f.err != nil {
		f.trace.markRetrieved()
		return nil, f.err
	}
	return f.result, nil
}

// Err returns the error stored on f, or nil if f finished successfully.
//
// It fails with [ErrCancelled] if f was cancelled and with
// [ErrInvalidState] if f is still pending. Like [Future.Result], it
// clears the unretrieved-error diagnostic.
func (f *Future) Err() error {
	switch f.state {
	case Cancelled:
		return ErrCancelled
	case Pending:
		return invalidState("error is not set")
	}
	f.trace.markRetrieved()
	return f.err
}

// AddDoneCallback registers fn to run, via the scheduler, when f
// completes. If f is already done, fn is scheduled immediately and the
// returned handle matches nothing.
func (f *Future) AddDoneCallback(fn Callback) CallbackHandle {
	return f.AddDoneCallbackContext(context.Background(), fn)
}

// AddDoneCallbackContext is [Future.AddDoneCallback] with an explicit
// execution context.
func (f *Future) AddDoneCallbackContext(ctx context.Context, fn Callback) CallbackHandle {
	if fn == nil {
		panic("aio: nil Callback")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := CallbackHandle(callbackID.Add(1))
	if f.state != Pending {
		owner := f.owner
		f.sched.CallSoon(ctx, func() { fn(owner) })
		return id
	}
	f.callbacks = append(f.callbacks, callbackEntry{id: id, ctx: ctx, fn: fn})
	return id
}

// RemoveDoneCallback removes the callbacks registered under the given
// handles and returns the number removed.
func (f *Future) RemoveDoneCallback(hs ...CallbackHandle) int {
	if len(f.callbacks) == 0 || len(hs) == 0 {
		return 0
	}
	kept := f.callbacks[:0]
	removed := 0
	for _, e := range f.callbacks {
		matched := false
		for _, h := range hs {
			if e.id == h {
				matched = true
				break
			}
		}
		if matched {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(f.callbacks); i++ {
		f.callbacks[i] = callbackEntry{}
	}
	f.callbacks = kept
	return removed
}

// drainCallbacks schedules every registered callback and clears the
// list. It runs exactly once, at the moment f enters a terminal state;
// callbacks fire in registration order.
func (f *Future) drainCallbacks() {
	entries := f.callbacks
	if len(entries) == 0 {
		return
	}
	f.callbacks = nil
	owner := f.owner
	for _, e := range entries {
		fn := e.fn
		f.sched.CallSoon(e.ctx, func() { fn(owner) })
	}
}

func (f *Future) String() string {
	return fmt.Sprintf("Future<%s>", f.state)
}

// setResultUnlessCancelled completes f with v, ignoring futures that
// were cancelled in the meantime. Timer callbacks use it so that a
// cancelled Sleep does not trip over its own timer.
func setResultUnlessCancelled(f *Future, v any) {
	if f.Cancelled() {
		return
	}
	_ = f.SetResult(v)
}

// copyResult copies src's terminal state onto dst: cancellation
// propagates as cancellation, otherwise the stored error or value is
// copied. src must be done; a dst that was cancelled in the meantime is
// left alone.
func copyResult(src, dst Awaitable) {
	if !src.Done() {
		panic("aio: copyResult on a pending awaitable")
	}
	if dst.Cancelled() {
		return
	}
	if dst.Done() {
		panic("aio: copyResult onto a completed awaitable")
	}
	d := dst.base()
	if src.Cancelled() {
		d.cancelBase()
		return
	}
	if err := src.Err(); err != nil {
		_ = d.SetError(err)
		return
	}
	v, _ := src.Result()
	_ = d.SetResult(v)
}

// Chain ties two futures together so that completing one completes the
// other: src's terminal state is copied onto dst, and cancelling dst
// cancels src. When the two belong to different schedulers each side is
// dispatched onto its owner's scheduler, which is what the
// foreign-thread submission entry point relies on.
func Chain(src, dst Awaitable) {
	srcSched := src.Scheduler()
	dstSched := dst.Scheduler()

	dst.AddDoneCallback(func(d Awaitable) {
		if !d.Cancelled() {
			return
		}
		if srcSched == dstSched {
			src.Cancel()
		} else {
			srcSched.CallSoon(context.Background(), func() { src.Cancel() })
		}
	})
	src.AddDoneCallback(func(s Awaitable) {
		if dstSched == srcSched {
			copyResult(s, dst)
		} else {
			dstSched.CallSoon(context.Background(), func() { copyResult(s, dst) })
		}
	})
}
