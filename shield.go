package aio

// Shield protects v from cancellation.
//
// The returned awaitable mirrors v's outcome, but cancelling it does
// not reach v: v keeps running. For v itself to be cancellable, keep
// a reference to it and cancel it directly.
//
// v is wrapped with [EnsureFuture] first, so a coroutine or a
// generator function works too.
func Shield(s Scheduler, v any) Awaitable {
	inner := EnsureFuture(s, v)
	if inner.Done() {
		return inner
	}

	outer := s.NewFuture()

	var innerHandle CallbackHandle
	innerHandle = inner.AddDoneCallback(func(aw Awaitable) {
		if outer.Cancelled() {
			if !aw.Cancelled() {
				aw.Err()
			}
			return
		}
		if aw.Cancelled() {
			outer.Cancel()
			return
		}
		copyResult(aw, outer)
	})

	outer.AddDoneCallback(func(Awaitable) {
		if !inner.Done() {
			inner.RemoveDoneCallback(innerHandle)
		}
	})

	return outer
}
