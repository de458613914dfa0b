package aio

import (
	"context"
	"sync"
)

// A Promise is a goroutine-safe view of a computation running on a
// scheduler. Unlike [Future], it may be waited on and cancelled from
// any goroutine.
type Promise struct {
	s Scheduler

	mu        sync.Mutex
	inner     Awaitable
	cancelReq bool

	once   sync.Once
	done   chan struct{}
	result any
	err    error
}

// Submit schedules c to run on s as a new [Task] and returns a
// [Promise] resolving with the task's outcome. It is the one entry
// point that is safe to call from outside s's callbacks.
func Submit(s Scheduler, c Coroutine) *Promise {
	p := &Promise{s: s, done: make(chan struct{})}

	s.CallSoon(context.Background(), func() {
		p.mu.Lock()
		if p.cancelReq {
			p.mu.Unlock()
			p.complete(nil, ErrCancelled)
			return
		}
		t := NewTask(s, c)
		p.inner = t
		p.mu.Unlock()

		t.AddDoneCallback(func(aw Awaitable) {
			p.complete(aw.Result())
		})
	})

	return p
}

// Done returns a channel closed when the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the promise settles, then returns its outcome.
// A cancelled computation yields [ErrCancelled].
func (p *Promise) Result() (any, error) {
	<-p.done
	return p.result, p.err
}

// TryResult returns the outcome if the promise has settled, reporting
// whether it has. It never blocks.
func (p *Promise) TryResult() (any, error, bool) {
	select {
	case <-p.done:
		return p.result, p.err, true
	default:
		return nil, nil, false
	}
}

// Cancel requests cancellation of the underlying task. The request is
// relayed onto the scheduler; whether the task honors it is observed
// through Result.
func (p *Promise) Cancel() {
	p.mu.Lock()
	p.cancelReq = true
	inner := p.inner
	p.mu.Unlock()

	if inner != nil {
		p.s.CallSoon(context.Background(), func() { inner.Cancel() })
	}
}

func (p *Promise) complete(v any, err error) {
	p.once.Do(func() {
		p.result = v
		p.err = err
		close(p.done)
	})
}
