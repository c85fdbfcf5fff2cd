// Package poolparty provides a fixed-size worker pool with futures.
//
// A ThreadPool owns a fixed set of worker goroutines, a FIFO task queue and a
// one-way shutdown flag. Callers on any goroutine submit work and get back a
// Future for its result.
//
// # Quick Start
//
//	pool, err := poolparty.New(4)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	future, err := poolparty.Submit(pool, func() (int, error) {
//		return 6 * 7, nil
//	})
//	if err != nil {
//		return err // poolparty.ErrPoolClosed after Shutdown
//	}
//	answer, err := future.Get()
//
// # Key Concepts
//
// Submission: Enqueue, Submit and SubmitWith only hold the pool lock long
// enough to append the task. They never wait for a free worker.
//
// Ordering: tasks from one goroutine are started in submission order. There is
// no ordering between tasks submitted concurrently from different goroutines.
//
// Failures: an error returned by a task, or a panic inside it, is delivered
// through that task's Future as a *TaskExecutionError. The worker carries on.
//
// Shutdown: Shutdown rejects further submissions with ErrPoolClosed but keeps
// every queued task. It never blocks and may be called from a task. Close
// calls Shutdown and then waits for all workers to drain the queue and exit.
// A pool that becomes unreachable without Close is shut down automatically.
//
// # Observability
//
// Pass WithMetrics(exporter) with an exporter from observability/prometheus
// to get task duration, panic, rejection and queue depth series, and use
// Stats for point-in-time snapshots.
package poolparty
