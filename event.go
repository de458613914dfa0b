package aio

// An Event is a level-triggered flag coroutines can wait on.
//
// Wait returns a future that completes once the event is set; setting
// an already-set event is a no-op. Like [Future], an Event must only
// be used from its scheduler's callbacks.
type Event struct {
	s       Scheduler
	set     bool
	waiters []*Future
}

// NewEvent returns a new, unset event bound to s.
func NewEvent(s Scheduler) *Event {
	return &Event{s: s}
}

// IsSet reports whether the event is set.
func (e *Event) IsSet() bool { return e.set }

// Set sets the event, completing every waiting future with true.
func (e *Event) Set() {
	if e.set {
		return
	}
	e.set = true
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		setResultUnlessCancelled(w, true)
	}
}

// Clear resets the event. Futures returned by Wait after a Clear block
// until the next Set.
func (e *Event) Clear() { e.set = false }

// Wait returns a future that completes with true once the event is
// set. If the event is already set, the future is completed right
// away.
func (e *Event) Wait() *Future {
	w := e.s.NewFuture()
	if e.set {
		_ = w.SetResult(true)
		return w
	}
	e.waiters = append(e.waiters, w)
	return w
}
