package workpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/queue"
)

const (
	// DefaultQueueBufferSize is the number of tasks the queue hands to
	// workers without spilling to its overflow list.
	DefaultQueueBufferSize = 16
)

var (
	// ErrPoolShuttingDown is returned when starting a pool that has
	// already been stopped.
	ErrPoolShuttingDown = errors.New("worker pool shutting down")
)

// Task is a unit of work run by a worker.
type Task interface {
	// Run executes the task to completion.
	Run()
}

// Discarder is implemented by tasks that hold resources which must be
// released when the task is dropped without running, for instance because the
// pool was stopped first.
type Discarder interface {
	// Discard releases the task's resources in place of Run.
	Discard()
}

// discard releases a task that will never run.
func discard(task Task) {
	d, ok := task.(Discarder)
	if !ok {
		log.Warnf("Dropping task %T without running it", task)
		return
	}
	d.Discard()
}

// Submitter accepts tasks for asynchronous execution. Submit returns once the
// task is scheduled, not once it has run.
type Submitter interface {
	Submit(task Task)
}

// Inline is a Submitter that runs every task on the caller's goroutine before
// Submit returns.
type Inline struct{}

// Submit runs the task immediately.
func (Inline) Submit(task Task) {
	task.Run()
}

// A compile-time check to ensure both submitters satisfy the interface.
var (
	_ Submitter = Inline{}
	_ Submitter = (*Pool)(nil)
)

// Config houses the parameters of a Pool.
type Config struct {
	// NumWorkers is the number of tasks that may run in parallel. It
	// defaults to the number of CPUs when zero.
	//
	// It bounds tasks, not goroutines: a task may fan out on its own.
	// Batches of trial decryption do, up to GOMAXPROCS each, so the
	// scheduler sees up to NumWorkers * GOMAXPROCS runnable goroutines.
	NumWorkers int

	// QueueBufferSize is the buffer of the queue feeding the workers.
	// Tasks beyond it are kept in an unbounded overflow list, so
	// submission never waits on the workers.
	QueueBufferSize int
}

// Pool is a fixed size set of goroutines running submitted tasks in
// submission order.
type Pool struct {
	started atomic.Bool
	stopped atomic.Bool

	cfg Config

	tasks *queue.ConcurrentQueue

	// queued counts tasks handed to the queue and not yet taken by a
	// worker. submitMtx keeps Submit from enqueueing once Stop has begun
	// draining.
	queued    atomic.Int64
	submitMtx sync.RWMutex

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a pool from the config. Tasks may be submitted immediately but
// only run once the pool is started.
func New(cfg *Config) (*Pool, error) {
	c := *cfg
	if c.NumWorkers == 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	if c.NumWorkers < 0 {
		return nil, fmt.Errorf("invalid number of workers: %d",
			c.NumWorkers)
	}
	if c.QueueBufferSize == 0 {
		c.QueueBufferSize = DefaultQueueBufferSize
	}
	if c.QueueBufferSize < 0 {
		return nil, fmt.Errorf("invalid queue buffer size: %d",
			c.QueueBufferSize)
	}

	p := &Pool{
		cfg:   c,
		tasks: queue.NewConcurrentQueue(c.QueueBufferSize),
		quit:  make(chan struct{}),
	}

	// The queue accepts tasks right away so that submissions made before
	// Start are held until the workers come up.
	p.tasks.Start()

	return p, nil
}

// NumWorkers returns the parallelism of the pool.
func (p *Pool) NumWorkers() int {
	return p.cfg.NumWorkers
}

// Start launches the workers.
func (p *Pool) Start() error {
	if p.stopped.Load() {
		return ErrPoolShuttingDown
	}
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}

	log.Debugf("Starting worker pool with %d workers", p.cfg.NumWorkers)

	p.wg.Add(p.cfg.NumWorkers)
	for i := 0; i < p.cfg.NumWorkers; i++ {
		go p.worker(i)
	}

	return nil
}

// Stop signals the workers to exit and waits for them. A task that is
// running is allowed to finish. Tasks that are still queued are discarded:
// those implementing Discarder have Discard called instead of Run.
func (p *Pool) Stop() error {
	p.submitMtx.Lock()
	swapped := p.stopped.CompareAndSwap(false, true)
	p.submitMtx.Unlock()
	if !swapped {
		return nil
	}

	log.Debugf("Stopping worker pool")

	close(p.quit)
	p.wg.Wait()

	// No worker is left and no task can be added, so exactly the queued
	// tasks remain on the queue.
	numQueued := p.queued.Load()
	if numQueued > 0 {
		log.Debugf("Discarding %d queued tasks", numQueued)
	}
	for ; numQueued > 0; numQueued-- {
		item := <-p.tasks.ChanOut()
		p.queued.Add(-1)

		if task, ok := item.(Task); ok {
			discard(task)
		}
	}

	p.tasks.Stop()

	return nil
}

// Submit queues the task for execution. Tasks submitted after Stop are
// discarded right away.
func (p *Pool) Submit(task Task) {
	p.submitMtx.RLock()
	defer p.submitMtx.RUnlock()

	if p.stopped.Load() {
		log.Debugf("Task %T submitted to stopped pool", task)
		discard(task)
		return
	}

	// The queue accepts items until it is stopped, which only happens
	// after Stop has taken the lock.
	p.queued.Add(1)
	p.tasks.ChanIn() <- task
}

// worker runs tasks until the pool is stopped.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.tasks.ChanOut():
			p.queued.Add(-1)

			task, ok := item.(Task)
			if !ok {
				log.Errorf("Worker %d received non-task %T",
					id, item)
				continue
			}
			task.Run()

		case <-p.quit:
			return
		}
	}
}
