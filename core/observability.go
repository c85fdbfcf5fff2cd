package core

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID           string
	Workers      int
	Queued       int
	Active       int
	// Completed counts tasks that returned normally; panicked tasks are only in Panicked.
	Completed    int64
	Panicked     int64
	Rejected     int64
	ShuttingDown bool
}
