package poolparty

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Swind/go-pool-party/core"
	"github.com/google/uuid"
)

// ErrInvalidThreadCount is returned by New for a thread count below 1.
var ErrInvalidThreadCount = errors.New("thread count must be positive")

// ThreadPool is a fixed-size pool of worker goroutines.
//
// Tasks run in submission order on whichever worker is free. Shutdown stops
// intake without dropping anything already queued; Close additionally waits
// for the workers to drain the queue and exit.
type ThreadPool struct {
	engine *core.Engine
}

// New starts a pool with threadCount workers. All workers have been started when New returns.
func New(threadCount int, opts ...Option) (*ThreadPool, error) {
	if threadCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreadCount, threadCount)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = "pool-" + uuid.NewString()
	}

	engine := core.NewEngine(threadCount, o.factory, core.NewSync(), &core.EngineConfig{
		ID:                  o.id,
		Logger:              o.logger,
		PanicHandler:        o.panicHandler,
		Metrics:             o.metrics,
		RejectedTaskHandler: o.rejectedTaskHandler,
	})

	p := &ThreadPool{engine: engine}

	// A pool dropped without Close still lets its workers drain and exit.
	runtime.AddCleanup(p, func(e *core.Engine) { e.Shutdown() }, engine)

	return p, nil
}

// Enqueue submits fn and returns a future that completes when fn has run.
// After Shutdown it returns core.ErrPoolClosed and fn is never called.
func (p *ThreadPool) Enqueue(fn func()) (*Future[struct{}], error) {
	if fn == nil {
		return Submit[struct{}](p, nil)
	}
	return Submit(p, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// Submit runs fn on p and returns a future for its result.
// Errors returned or panics raised by fn are delivered through the future as
// *core.TaskExecutionError. Submission after Shutdown returns core.ErrPoolClosed.
// A nil fn is rejected with core.ErrNilTask and reported like any other rejection.
func Submit[T any](p *ThreadPool, fn func() (T, error)) (*Future[T], error) {
	if fn == nil {
		return nil, p.engine.Enqueue(nil)
	}

	task, future := core.NewPackagedTask[T](fn)
	if err := p.engine.Enqueue(task); err != nil {
		return nil, err
	}
	return future, nil
}

// SubmitWith is Submit with one argument bound to fn at submission time.
func SubmitWith[A, T any](p *ThreadPool, fn func(A) (T, error), arg A) (*Future[T], error) {
	if fn == nil {
		return Submit[T](p, nil)
	}
	return Submit[T](p, core.Bind[A, T](fn, arg))
}

// Shutdown stops accepting tasks and wakes idle workers. Already queued tasks
// still run. It does not wait, is idempotent and may be called from a task.
func (p *ThreadPool) Shutdown() {
	p.engine.Shutdown()
}

// Close shuts the pool down and waits until every queued task has run and
// every worker has exited. Do not call Close from a task running on p.
func (p *ThreadPool) Close() {
	p.engine.Close()
}

// ID returns the ID of the thread pool
func (p *ThreadPool) ID() string {
	return p.engine.ID()
}

// WorkerCount returns the number of workers
func (p *ThreadPool) WorkerCount() int {
	return p.engine.WorkerCount()
}

// IsShutdown reports whether Shutdown has been requested.
func (p *ThreadPool) IsShutdown() bool {
	return p.engine.IsShutdown()
}

// QueuedTaskCount returns the number of tasks waiting for a worker.
func (p *ThreadPool) QueuedTaskCount() int {
	return p.engine.QueuedTaskCount()
}

// ActiveTaskCount returns the number of tasks currently running.
func (p *ThreadPool) ActiveTaskCount() int {
	return p.engine.ActiveTaskCount()
}

// Stats returns a snapshot of the pool state.
func (p *ThreadPool) Stats() core.PoolStats {
	return p.engine.Stats()
}
