package aio

// A Semaphore bounds concurrent access to a resource among coroutines
// on one scheduler.
//
// Acquire hands out futures that complete in FIFO order as permits
// free up; cancelling a waiting future gives up its place in line.
// Like [Future], a Semaphore must only be used from its scheduler's
// callbacks.
type Semaphore struct {
	s       Scheduler
	free    int
	waiters []*Future
}

// NewSemaphore returns a semaphore bound to s with n permits.
func NewSemaphore(s Scheduler, n int) *Semaphore {
	if n < 0 {
		panic("aio: NewSemaphore with negative permits")
	}
	return &Semaphore{s: s, free: n}
}

// Acquire returns a future that completes with true once a permit is
// obtained. Permits are granted in request order.
func (sem *Semaphore) Acquire() *Future {
	w := sem.s.NewFuture()
	if sem.free > 0 && len(sem.waiters) == 0 {
		sem.free--
		_ = w.SetResult(true)
		return w
	}
	sem.waiters = append(sem.waiters, w)
	return w
}

// TryAcquire obtains a permit without waiting, reporting whether it
// succeeded.
func (sem *Semaphore) TryAcquire() bool {
	if sem.free > 0 && len(sem.waiters) == 0 {
		sem.free--
		return true
	}
	return false
}

// Release returns a permit, handing it to the oldest waiter still
// interested. Waiters that cancelled their acquire are skipped.
func (sem *Semaphore) Release() {
	sem.free++
	for sem.free > 0 && len(sem.waiters) > 0 {
		w := sem.waiters[0]
		sem.waiters[0] = nil
		sem.waiters = sem.waiters[1:]
		if w.Done() {
			continue
		}
		sem.free--
		_ = w.SetResult(true)
	}
}
