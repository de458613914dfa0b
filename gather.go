package aio

// Gather returns a [Future] aggregating the results of fs, in order.
//
// On success the future's result is a []any holding every child's
// result at the position the child was passed in. The first child
// failure (an error other than [ErrCancelled]) fails the aggregate
// immediately with that error; the remaining children keep running,
// and their eventual errors are considered retrieved.
//
// Cancelling the aggregate cancels every child still pending; the
// aggregate then ends up cancelled once all children settle, even
// when some of them manage to complete anyway. An empty fs yields a
// future already finished with an empty slice. Passing
// the same awaitable more than once yields its result at each
// position.
func Gather(s Scheduler, fs ...Awaitable) *Future {
	return newGather(s, false, fs)
}

// GatherAll is like [Gather], but child failures do not fail the
// aggregate: it always waits for every child and resolves with a
// []any in which a failed child's slot holds its error and a
// cancelled child's slot holds [ErrCancelled].
//
// Cancelling the aggregate still cancels every child and, once they
// settle, leaves the aggregate cancelled.
func GatherAll(s Scheduler, fs ...Awaitable) *Future {
	return newGather(s, true, fs)
}

func newGather(s Scheduler, collect bool, fs []Awaitable) *Future {
	g := &gatherFuture{children: fs, collect: collect}
	g.init(s, g)

	if len(fs) == 0 {
		// Resolved on the spot: no pending window in which the
		// aggregate could neither complete nor be cancelled.
		_ = g.Future.SetResult([]any{})
		return &g.Future
	}

	g.left = len(fs)
	seen := make(map[Awaitable]bool, len(fs))
	for _, f := range fs {
		if f.Scheduler() != s {
			panic("aio: awaitable belongs to a different scheduler")
		}
		if seen[f] {
			g.left--
			continue
		}
		seen[f] = true
		f.AddDoneCallback(g.childDone)
	}

	return &g.Future
}

type gatherFuture struct {
	Future
	children        []Awaitable
	left            int
	collect         bool
	cancelRequested bool
}

// Cancel requests cancellation of every child still pending. It
// returns true if at least one child accepted the request.
func (g *gatherFuture) Cancel() bool {
	if g.Done() {
		return false
	}
	ok := false
	for _, f := range g.children {
		if f.Cancel() {
			ok = true
		}
	}
	if ok {
		// Hold the aggregate in the cancelled state once the
		// children settle, even if some complete normally.
		g.cancelRequested = true
	}
	return ok
}

func (g *gatherFuture) childDone(aw Awaitable) {
	if g.Done() {
		// The aggregate already resolved; consider the
		// straggler's error retrieved so it is not reported.
		if !aw.Cancelled() {
			aw.Err()
		}
		return
	}

	if !g.collect {
		if aw.Cancelled() {
			if !g.cancelRequested {
				// A child was cancelled from outside; the
				// aggregate follows suit.
				g.cancelBase()
				return
			}
		} else if err := aw.Err(); err != nil {
			g.SetError(err)
			return
		}
	}

	g.left--
	if g.left != 0 {
		return
	}

	if g.cancelRequested {
		g.cancelBase()
		return
	}

	results := make([]any, len(g.children))
	for i, f := range g.children {
		if f.Cancelled() {
			results[i] = ErrCancelled
			continue
		}
		if err := f.Err(); err != nil {
			results[i] = err
			continue
		}
		r, _ := f.Result()
		results[i] = r
	}
	g.SetResult(results)
}
