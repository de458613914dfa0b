package aio

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

// A Task is a [Future] that produces its own terminal value by driving a
// [Coroutine] to completion: the scheduler invokes its step function,
// the coroutine runs until it suspends on another awaitable or pauses,
// and the awaitable's completion callback steps the task again.
//
// An important invariant holds at every pending moment: either the step
// function is scheduled and the task waits on nothing, or the task waits
// on exactly one awaitable and the step function is not scheduled. The
// only transition from the latter back to the former is the wakeup
// callback registered on the awaited awaitable.
//
// A Task's value comes only from its coroutine; SetResult and SetError
// fail on a Task. External callers may only request cancellation.
type Task struct {
	Future
	coro       Coroutine
	name       string
	mustCancel bool
	waiter     Awaitable
	ctx        context.Context
	diag       *taskDiag
}

// A TaskOption configures a [Task] at creation.
type TaskOption func(*Task)

// WithName names the task. The default is "Task-N" with N taken from a
// process-wide counter.
func WithName(name string) TaskOption {
	return func(t *Task) { t.name = name }
}

// WithContext sets the execution context carried with every callback the
// task schedules.
func WithContext(ctx context.Context) TaskOption {
	return func(t *Task) {
		if ctx != nil {
			t.ctx = ctx
		}
	}
}

// NewTask creates a pending task bound to s and schedules its first
// step. The task is entered into the live-task registry until it is
// garbage collected; registry membership does not keep it alive.
func NewTask(s Scheduler, c Coroutine, opts ...TaskOption) *Task {
	if c == nil {
		panic("aio: nil Coroutine")
	}
	t := new(Task)
	t.Future.init(s, t)
	t.coro = c
	t.ctx = context.Background()
	id := taskSeq.Add(1)
	t.name = fmt.Sprintf("Task-%d", id)
	for _, o := range opts {
		o(t)
	}

	t.diag = &taskDiag{sched: s, stack: t.created, regID: id}
	t.diag.name.Store(t.name)
	registerTask(id, t)
	runtime.AddCleanup(t, taskCleanup, t.diag)

	s.CallSoon(t.ctx, func() { t.step(nil) })
	return t
}

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// SetName renames the task.
func (t *Task) SetName(name string) {
	t.name = name
	t.diag.name.Store(name)
}

// Coroutine returns the computation the task drives.
func (t *Task) Coroutine() Coroutine { return t.coro }

// Context returns the execution context the task schedules its
// callbacks with.
func (t *Task) Context() context.Context { return t.ctx }

// SetResult always fails: a task's result comes from its coroutine.
func (t *Task) SetResult(any) error {
	return errors.New("aio: task does not support SetResult")
}

// SetError always fails: a task's error comes from its coroutine.
func (t *Task) SetError(error) error {
	return errors.New("aio: task does not support SetError")
}

// Cancel requests that the task cancel itself: [ErrCancelled] is
// injected into the coroutine at its next resume point. The coroutine
// may clean up, or suppress the request entirely, so Cancelled does not
// become true until the coroutine actually terminates cancelled.
//
// Cancel reports false if the task is already done.
func (t *Task) Cancel() bool {
	if t.Done() {
		return false
	}
	if t.waiter != nil {
		if t.waiter.Cancel() {
			// Keep the waiter: it may be a task that suppresses its own
			// cancellation, in which case a later retry is needed.
			return true
		}
	}
	// The step function is already scheduled; it picks the flag up.
	t.mustCancel = true
	return true
}

// step resumes the coroutine once and acts on the returned [Step]. It
// is the task's resume operation, only ever invoked via the scheduler.
func (t *Task) step(injected error) {
	if t.Done() {
		panic(invalidState("step on %s task %s", t.State(), t.name))
	}
	if t.mustCancel {
		if injected == nil || !errors.Is(injected, ErrCancelled) {
			injected = ErrCancelled
		}
		t.mustCancel = false
	}
	t.waiter = nil

	enterTask(t.sched, t)
	defer leaveTask(t.sched, t)

	res := t.resume(injected)

	switch res.action {
	case actionReturn:
		if t.mustCancel {
			// Cancelled right before the coroutine finished.
			t.mustCancel = false
			t.Future.cancelBase()
		} else {
			_ = t.Future.SetResult(res.value)
		}
	case actionThrow:
		switch {
		case errors.Is(res.err, ErrCancelled):
			t.Future.cancelBase()
		case errors.Is(res.err, ErrExhausted):
			_ = t.Future.SetError(fmt.Errorf("aio: task %s: coroutine exhausted without a result", t.name))
		default:
			_ = t.Future.SetError(res.err)
		}
	case actionSuspend:
		f := res.future
		fb := f.base()
		switch {
		case fb.sched != t.sched:
			t.reschedule(fmt.Errorf("aio: task %s awaits %v attached to a different scheduler", t.name, f))
		case fb == &t.Future:
			t.reschedule(fmt.Errorf("aio: task %s cannot await itself", t.name))
		case !fb.blocking:
			t.reschedule(fmt.Errorf("aio: task %s awaits %v outside the suspend protocol", t.name, f))
		default:
			fb.blocking = false
			f.AddDoneCallbackContext(t.ctx, t.wakeup)
			t.waiter = f
			if t.mustCancel {
				if f.Cancel() {
					t.mustCancel = false
				}
			}
		}
	case actionPause:
		t.sched.CallSoon(t.ctx, func() { t.step(nil) })
	default:
		t.reschedule(fmt.Errorf("aio: task %s got a bad step from its coroutine", t.name))
	}

	t.diag.state.Store(int32(t.State()))
}

// resume runs the coroutine once, converting a panic into a failure
// step so that nothing escapes the scheduler's cycle.
func (t *Task) resume(injected error) (s Step) {
	defer func() {
		if v := recover(); v != nil {
			s = Throw(newPanicError(v))
		}
	}()
	return t.coro.Resume(injected)
}

// wakeup is the done callback registered on the awaited awaitable: the
// sole path from waiting back to stepping.
func (t *Task) wakeup(aw Awaitable) {
	if _, err := aw.Result(); err != nil {
		t.step(err)
	} else {
		t.step(nil)
	}
}

func (t *Task) reschedule(err error) {
	t.sched.CallSoon(t.ctx, func() { t.step(err) })
}

func (t *Task) String() string {
	return fmt.Sprintf("%s<%s>", t.name, t.State())
}

var taskSeq atomic.Uint64

// taskRegistry holds every live task weakly; insert and remove are safe
// for concurrent use for the sake of the foreign-thread submission entry
// point.
var taskRegistry = struct {
	sync.Mutex
	m map[uint64]weak.Pointer[Task]
}{m: make(map[uint64]weak.Pointer[Task])}

func registerTask(id uint64, t *Task) {
	taskRegistry.Lock()
	defer taskRegistry.Unlock()
	taskRegistry.m[id] = weak.Make(t)
}

func unregisterTask(id uint64) {
	taskRegistry.Lock()
	defer taskRegistry.Unlock()
	delete(taskRegistry.m, id)
}

// AllTasks returns the pending tasks bound to s, pruning entries whose
// task has been collected. Call it from s's own callbacks.
func AllTasks(s Scheduler) []*Task {
	taskRegistry.Lock()
	defer taskRegistry.Unlock()
	var tasks []*Task
	for id, p := range taskRegistry.m {
		t := p.Value()
		if t == nil {
			delete(taskRegistry.m, id)
			continue
		}
		if t.Scheduler() == s && !t.Done() {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// currentTasks maps each scheduler to the task it is stepping right
// now. At most one task is active per scheduler at any instant.
var currentTasks = struct {
	sync.Mutex
	m map[Scheduler]*Task
}{m: make(map[Scheduler]*Task)}

// CurrentTask returns the task s is currently stepping, or nil when
// called outside a task's coroutine.
func CurrentTask(s Scheduler) *Task {
	currentTasks.Lock()
	defer currentTasks.Unlock()
	return currentTasks.m[s]
}

func enterTask(s Scheduler, t *Task) {
	currentTasks.Lock()
	defer currentTasks.Unlock()
	if cur := currentTasks.m[s]; cur != nil {
		panic(fmt.Sprintf("aio: cannot enter %v: %v is already being stepped", t, cur))
	}
	currentTasks.m[s] = t
}

func leaveTask(s Scheduler, t *Task) {
	currentTasks.Lock()
	defer currentTasks.Unlock()
	if cur := currentTasks.m[s]; cur != t {
		panic(fmt.Sprintf("aio: leaving %v does not match the current task %v", t, cur))
	}
	delete(currentTasks.m, s)
}
