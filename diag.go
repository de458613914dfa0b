package aio

// Diagnostics for abandoned state: an error stored on a future that no
// one ever read, and a task collected while still pending. Neither is a
// crash; both are reported through the owning scheduler's
// [ErrorReporter] once the garbage collector proves there is no reader
// left. The cleanup data deliberately holds no pointer back to the
// future or task, so the diagnostics never keep them alive.

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

type errTrace struct {
	data *errTraceData
}

type errTraceData struct {
	retrieved atomic.Bool
	err       error
	sched     Scheduler
	stack     []byte
}

func newErrTrace(f *Future, err error) *errTrace {
	tr := &errTrace{data: &errTraceData{
		err:   err,
		sched: f.sched,
		stack: f.created,
	}}
	runtime.AddCleanup(tr, reportUnretrieved, tr.data)
	return tr
}

func (tr *errTrace) markRetrieved() {
	if tr != nil {
		tr.data.retrieved.Store(true)
	}
}

func reportUnretrieved(d *errTraceData) {
	if d.retrieved.Load() {
		return
	}
	reportError(d.sched, ErrorEvent{
		Message: "aio: future error was never retrieved",
		Err:     d.err,
		Stack:   d.stack,
	})
}

type taskDiag struct {
	state atomic.Int32 // mirrors the task's State for the cleanup
	name  atomic.Value // string
	sched Scheduler
	stack []byte
	regID uint64
}

func taskCleanup(d *taskDiag) {
	unregisterTask(d.regID)
	if State(d.state.Load()) != Pending {
		return
	}
	name, _ := d.name.Load().(string)
	reportError(d.sched, ErrorEvent{
		Message: fmt.Sprintf("aio: task %s was destroyed but it is pending", name),
		Stack:   d.stack,
	})
}
