package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by Enqueue once shutdown has been requested.
	// The task is not inserted and will never run.
	ErrPoolClosed = errors.New("thread pool already shut down, enqueuing failed")

	// ErrNilTask is returned by Enqueue for a nil task.
	ErrNilTask = errors.New("thread pool: nil task")

	// ErrTaskExited is the cause reported when a task body calls runtime.Goexit.
	ErrTaskExited = errors.New("task exited without returning")
)

// TaskExecutionError is delivered through a task's Future when the task body
// returns an error or panics. It never surfaces on the worker.
type TaskExecutionError struct {
	// Err is the error returned by the task body. Nil when the task panicked.
	Err error

	// Panic holds the recovered value when the task body panicked.
	Panic any

	// Stack is the stack trace captured at the panic site.
	Stack []byte
}

func (e *TaskExecutionError) Error() string {
	if e.Panicked() {
		return fmt.Sprintf("task panicked: %v", e.Panic)
	}
	return fmt.Sprintf("task failed: %v", e.Err)
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Err
}

// Panicked reports whether the task body panicked.
func (e *TaskExecutionError) Panicked() bool {
	return e.Err == nil
}
