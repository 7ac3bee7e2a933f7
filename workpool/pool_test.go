package workpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// funcTask adapts a closure to the Task interface.
type funcTask func()

func (f funcTask) Run() { f() }

// newTestPool creates and starts a pool that is stopped on test cleanup.
func newTestPool(t *testing.T, numWorkers int) *Pool {
	t.Helper()

	p, err := New(&Config{NumWorkers: numWorkers})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(func() {
		require.NoError(t, p.Stop())
	})

	return p
}

// TestNewConfigValidation checks defaults and rejected configs.
func TestNewConfigValidation(t *testing.T) {
	t.Parallel()

	p, err := New(&Config{})
	require.NoError(t, err)
	require.Positive(t, p.NumWorkers())
	require.NoError(t, p.Stop())

	_, err = New(&Config{NumWorkers: -1})
	require.Error(t, err)

	_, err = New(&Config{NumWorkers: 1, QueueBufferSize: -1})
	require.Error(t, err)
}

// TestPoolRunsAllTasks ensures every submitted task runs exactly once.
func TestPoolRunsAllTasks(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 4)

	const numTasks = 200
	var (
		mu   sync.Mutex
		runs = make(map[int]int)
		wg   sync.WaitGroup
	)
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		p.Submit(funcTask(func() {
			defer wg.Done()

			mu.Lock()
			runs[i]++
			mu.Unlock()
		}))
	}
	wg.Wait()

	require.Len(t, runs, numTasks)
	for i, n := range runs {
		require.Equal(t, 1, n, "task %d", i)
	}
}

// TestPoolFIFO ensures a single worker runs tasks in submission order.
func TestPoolFIFO(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1)

	const numTasks = 50
	order := make(chan int, numTasks)
	for i := 0; i < numTasks; i++ {
		p.Submit(funcTask(func() { order <- i }))
	}

	for i := 0; i < numTasks; i++ {
		select {
		case got := <-order:
			require.Equal(t, i, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("task %d did not run", i)
		}
	}
}

// TestPoolSubmitDoesNotBlock ensures submission returns while every worker
// is busy.
func TestPoolSubmitDoesNotBlock(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1)

	release := make(chan struct{})
	p.Submit(funcTask(func() { <-release }))

	const numTasks = 5 * DefaultQueueBufferSize
	done := make(chan struct{}, numTasks)
	submitted := make(chan struct{})
	go func() {
		for i := 0; i < numTasks; i++ {
			p.Submit(funcTask(func() { done <- struct{}{} }))
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatalf("submission blocked on a busy worker")
	}

	close(release)
	for i := 0; i < numTasks; i++ {
		<-done
	}
}

// TestPoolSubmitBeforeStart ensures tasks queued before Start run once the
// workers come up.
func TestPoolSubmitBeforeStart(t *testing.T) {
	t.Parallel()

	p, err := New(&Config{NumWorkers: 2})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, p.Stop())
	}()

	ran := make(chan struct{})
	p.Submit(funcTask(func() { close(ran) }))

	require.NoError(t, p.Start())
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("task submitted before start did not run")
	}
}

// TestPoolStop ensures a stopped pool cannot be restarted and drops new
// tasks without blocking.
func TestPoolStop(t *testing.T) {
	t.Parallel()

	p, err := New(&Config{NumWorkers: 1})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())

	// Stopping twice is harmless.
	require.NoError(t, p.Stop())
	require.ErrorIs(t, p.Start(), ErrPoolShuttingDown)

	ran := false
	p.Submit(funcTask(func() { ran = true }))
	require.False(t, ran)
}

// TestInline ensures the inline submitter runs the task before returning.
func TestInline(t *testing.T) {
	t.Parallel()

	ran := false
	Inline{}.Submit(funcTask(func() { ran = true }))
	require.True(t, ran)
}

// discardTask records whether it was run or discarded.
type discardTask struct {
	ran       chan struct{}
	discarded chan struct{}
}

func newDiscardTask() *discardTask {
	return &discardTask{
		ran:       make(chan struct{}),
		discarded: make(chan struct{}),
	}
}

func (d *discardTask) Run()     { close(d.ran) }
func (d *discardTask) Discard() { close(d.discarded) }

var _ Discarder = (*discardTask)(nil)

// TestPoolStopDiscardsQueued ensures tasks still queued when the pool stops
// are discarded instead of silently lost.
func TestPoolStopDiscardsQueued(t *testing.T) {
	t.Parallel()

	// The pool is never started, so everything submitted stays queued,
	// including tasks spilled to the queue's overflow list.
	p, err := New(&Config{NumWorkers: 1, QueueBufferSize: 1})
	require.NoError(t, err)

	tasks := make([]*discardTask, 3*DefaultQueueBufferSize)
	for i := range tasks {
		tasks[i] = newDiscardTask()
		p.Submit(tasks[i])
	}
	p.Submit(funcTask(func() { t.Errorf("queued task ran") }))

	require.NoError(t, p.Stop())

	for i, task := range tasks {
		select {
		case <-task.discarded:
		default:
			t.Fatalf("task %d was not discarded", i)
		}
		select {
		case <-task.ran:
			t.Fatalf("task %d ran", i)
		default:
		}
	}
	require.Zero(t, p.queued.Load())
}

// TestPoolSubmitAfterStopDiscards ensures a task submitted to a stopped pool
// is discarded before Submit returns.
func TestPoolSubmitAfterStopDiscards(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 2)
	require.NoError(t, p.Stop())

	task := newDiscardTask()
	p.Submit(task)

	select {
	case <-task.discarded:
	default:
		t.Fatalf("task was not discarded")
	}
}

// TestPoolStopAfterRun ensures tasks taken by workers are not counted as
// queued and run normally.
func TestPoolStopAfterRun(t *testing.T) {
	t.Parallel()

	p, err := New(&Config{NumWorkers: 2})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	task := newDiscardTask()
	p.Submit(task)

	select {
	case <-task.ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not run")
	}
	require.NoError(t, p.Stop())

	require.Zero(t, p.queued.Load())
	select {
	case <-task.discarded:
		t.Fatalf("task that ran was discarded")
	default:
	}
}
