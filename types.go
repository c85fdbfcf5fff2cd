package poolparty

import "github.com/Swind/go-pool-party/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the poolparty package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// Future holds the eventual result of a submitted task
type Future[T any] = core.Future[T]

// TaskExecutionError is delivered through a Future when a task fails or panics
type TaskExecutionError = core.TaskExecutionError

// PoolStats is a snapshot of pool state
type PoolStats = core.PoolStats

// Handler and metrics seams
type (
	PanicHandler        = core.PanicHandler
	RejectedTaskHandler = core.RejectedTaskHandler
	Metrics             = core.Metrics
	Logger              = core.Logger
)

// Errors returned by Enqueue and Submit
var (
	ErrPoolClosed = core.ErrPoolClosed
	ErrNilTask    = core.ErrNilTask
)
