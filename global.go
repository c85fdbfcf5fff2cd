package poolparty

import "sync"

// =============================================================================
// Global Thread Pool Helper (Singleton)
// =============================================================================

var (
	globalThreadPool *ThreadPool
	globalMu         sync.Mutex
)

// InitGlobalThreadPool initializes the global thread pool with the specified number of workers.
// Calling it again while a global pool exists is a no-op.
func InitGlobalThreadPool(workers int, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		return nil // Already initialized
	}

	pool, err := New(workers, append([]Option{WithID("global-pool")}, opts...)...)
	if err != nil {
		return err
	}
	globalThreadPool = pool
	return nil
}

// GetGlobalThreadPool returns the global thread pool instance.
// It panics if InitGlobalThreadPool has not been called.
func GetGlobalThreadPool() *ThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool == nil {
		panic("GlobalThreadPool not initialized. Call InitGlobalThreadPool() first.")
	}
	return globalThreadPool
}

// ShutdownGlobalThreadPool closes the global thread pool, waiting for queued tasks.
func ShutdownGlobalThreadPool() {
	globalMu.Lock()
	pool := globalThreadPool
	globalThreadPool = nil
	globalMu.Unlock()

	if pool != nil {
		pool.Close()
	}
}
