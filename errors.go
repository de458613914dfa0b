package aio

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// ErrCancelled is the cancellation error.
	//
	// It is reported by [Future.Result] and [Future.Err] on a cancelled
	// future, and it is the error a [Task] injects into its coroutine to
	// request cooperative teardown. A coroutine may observe it and carry
	// on; cancellation is a request, not a guarantee.
	ErrCancelled = errors.New("aio: cancelled")

	// ErrTimeout is reported by timeout-bearing combinators, e.g.
	// [WaitFor] and [AsCompleted], when the deadline elapses before
	// completion.
	ErrTimeout = errors.New("aio: timeout")

	// ErrInvalidState reports an operation attempted in a state that
	// forbids it, e.g. completing a future twice, or reading a result
	// while still pending.
	ErrInvalidState = errors.New("aio: invalid state")

	// ErrExhausted reports that a generator-style coroutine ran out of
	// code to run. It only travels inside the resume protocol and is
	// rejected by [Future.SetError].
	ErrExhausted = errors.New("aio: coroutine exhausted")
)

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// A panicError carries a recovered panic value out of a coroutine,
// along with the stack trace captured at the recover site.
// It is stored on the owning [Task] like any other coroutine failure.
type panicError struct {
	value any
	stack []byte
}

func newPanicError(v any) *panicError {
	return &panicError{value: v, stack: debug.Stack()}
}

func (p *panicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aio: coroutine panic: %v", p.value)
	if p.stack != nil {
		b.WriteString("\n\n")
		b.Write(p.stack)
	}
	return b.String()
}

func (p *panicError) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}
