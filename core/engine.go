package core

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Engine is the pool core: a FIFO task queue, a fixed set of workers and a
// monotonic shutdown flag, all guarded by one Synchronizer.
//
// State machine: Running -> ShuttingDown. The transition happens on the first
// Shutdown and is never undone. After it, Enqueue fails with ErrPoolClosed and
// the workers drain whatever is still queued before they exit.
type Engine struct {
	id   string
	sync Synchronizer

	// Guarded by sync.
	tasks        *TaskQueue
	shuttingDown bool

	factory ThreadFactory
	workers []*ThreadJoiner
	// Guarded by sync. Workers restarted after a task called runtime.Goexit.
	replacements []*ThreadJoiner

	logger              Logger
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	metricActive    atomic.Int32
	metricCompleted atomic.Int64
	metricPanicked  atomic.Int64
	metricRejected  atomic.Int64
}

// NewEngine starts threadCount workers through factory and returns once all
// of them have been created. threadCount values below 1 are raised to 1.
func NewEngine(threadCount int, factory ThreadFactory, sync Synchronizer, config *EngineConfig) *Engine {
	if threadCount < 1 {
		threadCount = 1
	}

	e := &Engine{
		sync:    sync,
		tasks:   NewTaskQueue(),
		factory: factory,
	}
	e.applyConfig(config)

	e.workers = make([]*ThreadJoiner, 0, threadCount)
	for i := 0; i < threadCount; i++ {
		e.workers = append(e.workers, NewThreadJoiner(factory.Create(func() { e.work(i) })))
	}

	e.logger.Info("thread pool started", F("pool", e.id), F("workers", threadCount))
	return e
}

func (e *Engine) applyConfig(config *EngineConfig) {
	if config != nil {
		e.id = config.ID
		e.logger = config.Logger
		e.panicHandler = config.PanicHandler
		e.metrics = config.Metrics
		e.rejectedTaskHandler = config.RejectedTaskHandler
	}

	// Use defaults if not provided
	if e.id == "" {
		e.id = "pool"
	}
	if e.logger == nil {
		e.logger = NewDefaultLogger()
	}
	if e.panicHandler == nil {
		e.panicHandler = &DefaultPanicHandler{Logger: e.logger}
	}
	if e.metrics == nil {
		e.metrics = &NilMetrics{}
	}
	if e.rejectedTaskHandler == nil {
		e.rejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: e.logger}
	}
}

// Enqueue stores task as the newest pending task and wakes one worker.
// It fails with ErrPoolClosed, without storing the task, once Shutdown has been called.
func (e *Engine) Enqueue(task Task) error {
	if task == nil {
		e.reject("nil task")
		return ErrNilTask
	}

	var closed bool
	var depth int
	e.sync.RunProtected(func() {
		if e.shuttingDown {
			closed = true
			return
		}
		e.tasks.Push(task)
		depth = e.tasks.Len()
	})

	if closed {
		e.reject("shutdown")
		return ErrPoolClosed
	}

	e.sync.WakeOne()
	e.metrics.RecordQueueDepth(e.id, depth)
	return nil
}

func (e *Engine) reject(reason string) {
	e.metricRejected.Add(1)
	e.rejectedTaskHandler.HandleRejectedTask(e.id, reason)
	e.metrics.RecordTaskRejected(e.id, reason)
}

// Shutdown stops accepting tasks and wakes every worker so idle ones can exit.
// It does not wait for the workers; repeated calls only re-wake them.
// Safe to call from inside a task running on this engine.
func (e *Engine) Shutdown() {
	var first bool
	e.sync.RunProtected(func() {
		first = !e.shuttingDown
		e.shuttingDown = true
	})
	e.sync.WakeAll()

	if first {
		e.logger.Info("thread pool shutting down", F("pool", e.id))
	}
}

// Close shuts the engine down and joins every worker. When Close returns, all
// tasks accepted by Enqueue have run and no worker is left. Repeated calls are safe.
//
// Close must not be called from a task running on this engine: the worker
// running it would wait for itself.
func (e *Engine) Close() {
	e.Shutdown()
	for _, w := range e.workers {
		w.Close()
	}

	// A replacement is registered before the thread it replaces ends, so once
	// every earlier thread is joined the list can only grow past index i.
	for i := 0; ; i++ {
		var next *ThreadJoiner
		e.sync.RunProtected(func() {
			if i < len(e.replacements) {
				next = e.replacements[i]
			}
		})
		if next == nil {
			return
		}
		next.Close()
	}
}

// IsShutdown reports whether Shutdown has been requested.
func (e *Engine) IsShutdown() bool {
	var closed bool
	e.sync.RunProtected(func() { closed = e.shuttingDown })
	return closed
}

// work is the worker loop. It ends once shutdown is requested and the queue
// is observed empty; both conditions are stable from then on.
func (e *Engine) work(workerID int) {
	for !e.drained() {
		e.sync.WaitUntil(e.hasWorkOrShutdown, func(lock Unlocker) {
			e.executeOldestTask(workerID, lock)
		})
	}
	e.logger.Debug("worker exited", F("pool", e.id), F("worker", workerID))
}

func (e *Engine) drained() bool {
	var done bool
	e.sync.RunProtected(func() {
		done = e.shuttingDown && e.tasks.IsEmpty()
	})
	return done
}

// hasWorkOrShutdown is the wait predicate; it runs with the lock held.
func (e *Engine) hasWorkOrShutdown() bool {
	return !e.tasks.IsEmpty() || e.shuttingDown
}

// executeOldestTask runs with the lock held. It pops the oldest task, releases
// the lock, then runs the task so other workers and submitters are not blocked.
// An empty queue means the wakeup was a shutdown signal.
func (e *Engine) executeOldestTask(workerID int, lock Unlocker) {
	task, ok := e.tasks.PopOldest()
	if !ok {
		return
	}
	depth := e.tasks.Len()
	lock.Unlock()

	e.metrics.RecordQueueDepth(e.id, depth)
	e.runTask(workerID, task)
}

// runTask executes one task and contains its panic.
//
// A task calling runtime.Goexit ends the current goroutine whatever the engine
// does, so the worker loop is restarted on a new thread before it goes.
func (e *Engine) runTask(workerID int, task Task) {
	e.metricActive.Add(1)
	start := time.Now()
	returned := false

	defer func() {
		e.metricActive.Add(-1)
		e.metrics.RecordTaskDuration(e.id, time.Since(start))

		if returned {
			e.metricCompleted.Add(1)
			return
		}
		if r := recover(); r != nil {
			e.metricPanicked.Add(1)
			e.panicHandler.HandlePanic(e.id, workerID, r, debug.Stack())
			e.metrics.RecordTaskPanic(e.id, r)
			return
		}
		e.restartWorker(workerID)
	}()

	task()
	returned = true
}

func (e *Engine) restartWorker(workerID int) {
	e.logger.Warn("task exited its worker, restarting worker", F("pool", e.id), F("worker", workerID))
	thread := NewThreadJoiner(CreateWith(e.factory, e.work, workerID))
	e.sync.RunProtected(func() {
		e.replacements = append(e.replacements, thread)
	})
}

// ID returns the pool ID used in logs and metrics.
func (e *Engine) ID() string {
	return e.id
}

// WorkerCount returns the fixed number of workers.
func (e *Engine) WorkerCount() int {
	return len(e.workers)
}

// QueuedTaskCount returns the number of tasks waiting for a worker.
func (e *Engine) QueuedTaskCount() int {
	var n int
	e.sync.RunProtected(func() { n = e.tasks.Len() })
	return n
}

// ActiveTaskCount returns the number of tasks currently executing.
func (e *Engine) ActiveTaskCount() int {
	return int(e.metricActive.Load())
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() PoolStats {
	stats := PoolStats{
		ID:        e.id,
		Workers:   len(e.workers),
		Active:    int(e.metricActive.Load()),
		Completed: e.metricCompleted.Load(),
		Panicked:  e.metricPanicked.Load(),
		Rejected:  e.metricRejected.Load(),
	}
	e.sync.RunProtected(func() {
		stats.Queued = e.tasks.Len()
		stats.ShuttingDown = e.shuttingDown
	})
	return stats
}
