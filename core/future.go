package core

import (
	"context"
	"runtime/debug"
)

// =============================================================================
// Future: the result channel paired with each packaged task
// =============================================================================

// Future holds the eventual outcome of one task.
//
// It is completed exactly once, by the worker that runs the paired task.
// Reads block until then; the completion happens-before every read that observes it.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the task has run and returns its outcome.
// A failed task yields a *TaskExecutionError.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetContext is Get bounded by ctx. It returns ctx.Err() if ctx ends first;
// the task itself keeps its place in the queue and still runs.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryGet polls the future. ok is false while the task has not completed.
func (f *Future[T]) TryGet() (value T, err error, ok bool) {
	if !f.Ready() {
		return value, nil, false
	}
	return f.value, f.err, true
}

// NewPackagedTask pairs fn with a Future.
//
// Running the returned Task calls fn once and completes the Future. A returned
// error is wrapped in *TaskExecutionError. A panic completes the Future with a
// *TaskExecutionError carrying the panic value and stack, then continues
// unwinding so the worker running the task can report it.
func NewPackagedTask[T any](fn func() (T, error)) (Task, *Future[T]) {
	f := newFuture[T]()

	task := func() {
		completed := false
		defer func() {
			if completed {
				return
			}
			r := recover()
			var zero T
			if r == nil {
				// runtime.Goexit inside the task body
				f.complete(zero, &TaskExecutionError{Err: ErrTaskExited})
				return
			}
			f.complete(zero, &TaskExecutionError{Panic: r, Stack: debug.Stack()})
			panic(r)
		}()

		value, err := fn()
		if err != nil {
			err = &TaskExecutionError{Err: err}
		}
		f.complete(value, err)
		completed = true
	}

	return task, f
}
