package aio

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// A Loop is the [Scheduler] this module ships: a single-threaded
// callback runner with a FIFO ready queue and a deadline-ordered timer
// queue.
//
// When a callback is scheduled, it is added to an internal queue. The
// Run method then pops and runs each of them until the queue is
// emptied. It is done in a single-threaded manner: if one callback
// blocks, no other callbacks can run. The best practice is not to
// block.
//
// Manually calling the Run method is usually not desired. One would
// instead use the Autorun method to set up an autorun function to call
// the Run method automatically whenever a callback is scheduled or a
// timer fires. The Loop never calls the autorun function twice at the
// same time.
type Loop struct {
	mu      sync.Mutex
	ready   []scheduledCall
	timers  timerQueue
	alarm   *time.Timer
	alarmAt time.Time
	running bool
	autorun func()
	wake    chan struct{}
	debug   bool
	handler func(ErrorEvent)
}

type scheduledCall struct {
	ctx context.Context
	fn  func()
}

// NewLoop returns a new, empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Autorun sets up an autorun function to call the Run method
// automatically whenever a callback is scheduled or a timer fires.
//
// One must pass a function that calls the Run method. If f blocks,
// CallSoon may block too.
func (l *Loop) Autorun(f func()) {
	l.mu.Lock()
	l.autorun = f
	l.mu.Unlock()
}

// SetDebug turns construction-site stack capture on or off for futures
// and tasks created against this loop.
func (l *Loop) SetDebug(on bool) {
	l.mu.Lock()
	l.debug = on
	l.mu.Unlock()
}

// Debug implements the [Scheduler] interface.
func (l *Loop) Debug() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

// SetErrorHandler routes diagnostic events (unretrieved errors, tasks
// destroyed pending, callback panics) to h instead of the default
// slog-based handler. h must be safe for concurrent use.
func (l *Loop) SetErrorHandler(h func(ErrorEvent)) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// HandleError implements the [ErrorReporter] interface.
func (l *Loop) HandleError(ev ErrorEvent) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h(ev)
		return
	}
	logError(ev)
}

// NewFuture implements the [Scheduler] interface.
func (l *Loop) NewFuture() *Future {
	return NewFuture(l)
}

// CallSoon implements the [Scheduler] interface.
// It is safe for concurrent use.
func (l *Loop) CallSoon(ctx context.Context, fn func()) {
	if fn == nil {
		panic("aio: CallSoon with nil function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var autorun func()

	l.mu.Lock()
	l.ready = append(l.ready, scheduledCall{ctx, fn})
	if !l.running && l.autorun != nil {
		l.running = true
		autorun = l.autorun
	}
	l.mu.Unlock()

	l.kick()

	if autorun != nil {
		autorun()
	}
}

// CallLater implements the [Scheduler] interface.
// It is safe for concurrent use.
func (l *Loop) CallLater(ctx context.Context, d time.Duration, fn func()) Timer {
	if fn == nil {
		panic("aio: CallLater with nil function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	t := &loopTimer{l: l, ctx: ctx, when: time.Now().Add(d), fn: fn}

	l.mu.Lock()
	l.timers.Push(t)
	l.armLocked()
	l.mu.Unlock()

	return t
}

// Run pops and runs every due callback until the queue is emptied.
//
// Run must not be called twice at the same time.
func (l *Loop) Run() {
	l.mu.Lock()
	l.running = true

	for {
		l.promoteDueLocked()
		if len(l.ready) == 0 {
			break
		}
		c := l.ready[0]
		l.ready[0] = scheduledCall{}
		l.ready = l.ready[1:]
		if len(l.ready) == 0 {
			l.ready = nil
		}
		l.mu.Unlock()
		l.invoke(c)
		l.mu.Lock()
	}

	l.armLocked()
	l.running = false
	l.mu.Unlock()
}

// RunUntilDone runs the loop until aw completes, sleeping between
// passes while only timers or foreign-goroutine work remain, and
// returns aw's result.
//
// RunUntilDone blocks forever if nothing ever completes aw. It must
// not be called concurrently with itself or with Run.
func (l *Loop) RunUntilDone(aw Awaitable) (any, error) {
	for {
		l.Run()
		if aw.Done() {
			return aw.Result()
		}
		<-l.wake
	}
}

func (l *Loop) invoke(c scheduledCall) {
	defer func() {
		if v := recover(); v != nil {
			ev := ErrorEvent{Message: "aio: callback panicked", Stack: debug.Stack()}
			if err, ok := v.(error); ok {
				ev.Err = err
			} else {
				ev.Err = fmt.Errorf("%v", v)
			}
			l.HandleError(ev)
		}
	}()
	c.fn()
}

func (l *Loop) kick() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// promoteDueLocked moves every due timer callback onto the ready queue,
// dropping cancelled timers along the way.
func (l *Loop) promoteDueLocked() {
	now := time.Now()
	for {
		t := l.timers.Peek()
		if t == nil {
			break
		}
		if t.state == timerCancelled {
			l.timers.Pop()
			continue
		}
		if t.when.After(now) {
			break
		}
		l.timers.Pop()
		t.state = timerFired
		l.ready = append(l.ready, scheduledCall{t.ctx, t.fn})
	}
}

// armLocked keeps a single alarm armed for the earliest pending timer.
func (l *Loop) armLocked() {
	for {
		t := l.timers.Peek()
		if t == nil {
			if l.alarm != nil {
				l.alarm.Stop()
			}
			l.alarmAt = time.Time{}
			return
		}
		if t.state == timerCancelled {
			l.timers.Pop()
			continue
		}
		if l.alarmAt.Equal(t.when) {
			return
		}
		l.alarmAt = t.when
		d := time.Until(t.when)
		if l.alarm == nil {
			l.alarm = time.AfterFunc(d, l.alarmFired)
		} else {
			l.alarm.Reset(d)
		}
		return
	}
}

func (l *Loop) alarmFired() {
	var autorun func()

	l.mu.Lock()
	l.alarmAt = time.Time{}
	l.promoteDueLocked()
	l.armLocked()
	if len(l.ready) != 0 && !l.running && l.autorun != nil {
		l.running = true
		autorun = l.autorun
	}
	l.mu.Unlock()

	l.kick()

	if autorun != nil {
		autorun()
	}
}

const (
	timerPending = iota
	timerFired
	timerCancelled
)

type loopTimer struct {
	l     *Loop
	ctx   context.Context
	when  time.Time
	fn    func()
	state int
}

// Cancel stops the timer before it fires.
// It is safe for concurrent use.
func (t *loopTimer) Cancel() bool {
	l := t.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.state != timerPending {
		return false
	}
	t.state = timerCancelled
	return true
}
