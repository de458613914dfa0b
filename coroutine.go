package aio

import (
	"errors"
)

// A Coroutine is the suspendable computation a [Task] drives: a
// resumable unit that, on every resume, either finishes, fails, or tells
// the task what to suspend on.
//
// Resume is called with a nil error for a plain resume, or with an
// injected error, e.g. [ErrCancelled] when cancellation was requested
// while the coroutine was suspended. The returned [Step] decides what
// the task does next.
//
// Coroutines written by hand are state machines (see [CoroutineFunc]);
// [Generator] adapts an ordinary function with await-style control flow.
type Coroutine interface {
	Resume(injected error) Step
}

// A CoroutineFunc is a func that implements [Coroutine].
type CoroutineFunc func(injected error) Step

// Resume implements the [Coroutine] interface.
func (f CoroutineFunc) Resume(injected error) Step { return f(injected) }

type stepAction int

const (
	_ stepAction = iota
	actionReturn
	actionThrow
	actionSuspend
	actionPause
)

// A Step is what a [Coroutine] returns from Resume: a closed, four-way
// choice of what happens next. The zero Step is invalid and makes the
// driving task fail with a usage error.
//
// A Step is created with [Return], [Throw], [Suspend] or [Pause].
type Step struct {
	action stepAction
	value  any
	err    error
	future Awaitable
}

// Return finishes the coroutine with v. The driving task transitions to
// Finished (or to Cancelled, if cancellation was requested during the
// final resume).
func Return(v any) Step {
	return Step{action: actionReturn, value: v}
}

// Throw fails the coroutine with err. The driving task transitions to
// Cancelled if err is [ErrCancelled], to Finished with err stored
// otherwise.
func Throw(err error) Step {
	if err == nil {
		panic("aio: Throw with nil error")
	}
	return Step{action: actionThrow, err: err}
}

// Suspend yields the coroutine until aw completes. It marks aw as the
// object the task suspends on; the task clears the mark, registers its
// wakeup callback and parks itself.
func Suspend(aw Awaitable) Step {
	if aw == nil {
		panic("aio: Suspend on nil Awaitable")
	}
	aw.base().blocking = true
	return Step{action: actionSuspend, future: aw}
}

// Pause yields the coroutine for exactly one scheduler cycle: a
// cooperative yield with no dependency. The task reschedules its step
// and resumes on the next pass.
func Pause() Step {
	return Step{action: actionPause}
}

// A Gen is handed to the function run by [Generator]. Its methods are
// the suspension points.
//
// Gen methods must only be called from that function, on the goroutine
// the generator runs it on.
type Gen struct {
	steps  chan Step
	resume chan error
}

// Await suspends the generator until aw completes, then returns aw's
// result. An already-done aw is read without suspending.
//
// If an error was injected while suspended (cancellation, or a foreign
// or malformed await detected by the task), Await returns it; returning
// it from the generator function fails the task, while ignoring it and
// carrying on is how a computation suppresses cancellation.
func (g *Gen) Await(aw Awaitable) (any, error) {
	if aw == nil {
		panic("aio: await on nil Awaitable")
	}
	if !aw.Done() {
		g.steps <- Suspend(aw)
		if err := <-g.resume; err != nil {
			return nil, err
		}
		if !aw.Done() {
			return nil, errors.New("aio: generator was resumed before its awaitable completed")
		}
	}
	return aw.Result()
}

// Pause suspends the generator for one scheduler cycle. It returns the
// injected error, if cancellation was requested in the meantime.
func (g *Gen) Pause() error {
	g.steps <- Pause()
	return <-g.resume
}

// Generator adapts fn into a [Coroutine]. fn runs with ordinary Go
// control flow and suspends through the [Gen] argument; its return
// value, error, or panic becomes the coroutine's outcome.
//
// Caveat: fn runs on its own (stackful) goroutine, resumed in lock-step
// with the driving task. The goroutine leaks if the task is abandoned
// while suspended, just like a task that never completes.
func Generator(fn func(g *Gen) (any, error)) Coroutine {
	if fn == nil {
		panic("aio: nil generator function")
	}
	return &generator{
		fn: fn,
		g: &Gen{
			steps:  make(chan Step),
			resume: make(chan error),
		},
	}
}

type generator struct {
	fn      func(g *Gen) (any, error)
	g       *Gen
	started bool
	done    bool
}

func (c *generator) Resume(injected error) Step {
	if c.done {
		panic("aio: coroutine resumed after completion")
	}
	if !c.started {
		if injected != nil {
			// Injected before the first resume: the body never runs.
			c.done = true
			return Throw(injected)
		}
		c.started = true
		go c.run()
	} else {
		c.g.resume <- injected
	}
	s := <-c.g.steps
	if s.action == actionReturn || s.action == actionThrow {
		c.done = true
	}
	return s
}

func (c *generator) run() {
	var s Step
	func() {
		defer func() {
			if v := recover(); v != nil {
				s = Throw(newPanicError(v))
			}
		}()
		v, err := c.fn(c.g)
		if err != nil {
			s = Throw(err)
		} else {
			s = Return(v)
		}
	}()
	c.g.steps <- s
}
