package scan

import (
	"sync/atomic"
	"unsafe"

	"github.com/btcsuite/shieldscan/workpool"
)

// Tasks decides how batches are handed to the worker pool and whether their
// heap usage is tracked while they run.
type Tasks[T workpool.Task] interface {
	// AddTask prepares item for submission and returns the task that
	// will run it.
	AddTask(item T) workpool.Task

	// RunTask submits item to the worker pool. It returns once the task
	// is scheduled.
	RunTask(item T)

	// DynamicUsage returns the heap bytes attributed to tasks that have
	// been added but have not finished.
	DynamicUsage() int
}

// Untracked submits tasks as they are, without any accounting.
type Untracked[T workpool.Task] struct {
	submitter workpool.Submitter
}

// NewUntracked returns a strategy that submits tasks to submitter.
func NewUntracked[T workpool.Task](
	submitter workpool.Submitter) *Untracked[T] {

	return &Untracked[T]{submitter: submitter}
}

// AddTask returns the item itself.
func (u *Untracked[T]) AddTask(item T) workpool.Task {
	return item
}

// RunTask submits the item.
func (u *Untracked[T]) RunTask(item T) {
	u.submitter.Submit(u.AddTask(item))
}

// DynamicUsage always returns zero.
func (u *Untracked[T]) DynamicUsage() int {
	return 0
}

// UsageTask is a task that can report its heap usage.
type UsageTask interface {
	workpool.Task
	DynamicUsage
}

// WithUsage tracks the heap usage of every task from the moment it is added
// until it has finished running.
type WithUsage[T UsageTask] struct {
	submitter workpool.Submitter

	// runningUsage is the heap usage of all tasks not yet finished. It
	// is shared with the tasks, which subtract their own share when
	// done.
	runningUsage *atomic.Int64
}

// NewWithUsage returns a tracking strategy that submits tasks to submitter.
func NewWithUsage[T UsageTask](submitter workpool.Submitter) *WithUsage[T] {
	return &WithUsage[T]{
		submitter:    submitter,
		runningUsage: new(atomic.Int64),
	}
}

// AddTask wraps item and charges its usage to the running total.
func (w *WithUsage[T]) AddTask(item T) workpool.Task {
	task := &WithUsageTask[T]{
		item:         item,
		runningUsage: w.runningUsage,
	}

	// The wrapper lives on the heap from here on, and the pool holds it
	// boxed in its queue until a worker picks it up.
	task.ownUsage = int64(queuedTaskOverhead + int(unsafe.Sizeof(*task)) +
		item.DynamicUsage())

	w.runningUsage.Add(task.ownUsage)

	return task
}

// RunTask wraps and submits the item.
func (w *WithUsage[T]) RunTask(item T) {
	w.submitter.Submit(w.AddTask(item))
}

// DynamicUsage returns the usage of the tasks that have not yet finished.
// Tasks are short lived, so the value is only a snapshot.
func (w *WithUsage[T]) DynamicUsage() int {
	return int(w.runningUsage.Load())
}

// WithUsageTask runs an item and then removes its usage from the running
// total. The usage is fixed when the task is created.
type WithUsageTask[T UsageTask] struct {
	item         T
	ownUsage     int64
	runningUsage *atomic.Int64
}

// Run runs the item and releases its usage.
func (t *WithUsageTask[T]) Run() {
	defer t.runningUsage.Add(-t.ownUsage)

	t.item.Run()
}

// Discard releases the usage of an item that will not run, discarding the
// item too if it supports it.
func (t *WithUsageTask[T]) Discard() {
	defer t.runningUsage.Add(-t.ownUsage)

	if d, ok := any(t.item).(workpool.Discarder); ok {
		d.Discard()
	}
}
