package core

import "sync"

// =============================================================================
// ThreadFactory / ThreadJoiner: how workers are started and reclaimed
// =============================================================================

// Joinable is a handle to a running thread of execution.
type Joinable interface {
	// Joinable reports whether Join may still be called.
	Joinable() bool

	// Join blocks until the thread body has returned.
	Join()
}

// ThreadFactory starts threads of execution. It exists so tests can
// substitute fake threads for the Engine's workers.
type ThreadFactory interface {
	// Create starts body on a new thread of execution and returns its handle.
	Create(body func()) Joinable
}

// CreateWith starts body with a bound argument on a thread produced by factory.
func CreateWith[A any](factory ThreadFactory, body func(A), arg A) Joinable {
	return factory.Create(func() { body(arg) })
}

// GoroutineFactory runs each thread body on its own goroutine.
type GoroutineFactory struct{}

var _ ThreadFactory = GoroutineFactory{}

// Create implements ThreadFactory. The goroutine is running when Create returns.
func (GoroutineFactory) Create(body func()) Joinable {
	g := &goroutineThread{done: make(chan struct{})}
	go func() {
		defer close(g.done)
		body()
	}()
	return g
}

// goroutineThread is the Joinable for one goroutine.
type goroutineThread struct {
	mu     sync.Mutex
	done   chan struct{}
	joined bool
}

func (g *goroutineThread) Joinable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.joined
}

func (g *goroutineThread) Join() {
	<-g.done
	g.mu.Lock()
	g.joined = true
	g.mu.Unlock()
}

// ThreadJoiner owns one Joinable and joins it at most once.
//
// Close is the release point: it joins the thread if it is still joinable.
// Later and concurrent calls wait for the first one and then return.
type ThreadJoiner struct {
	thread Joinable
	once   sync.Once
}

// NewThreadJoiner takes ownership of thread.
func NewThreadJoiner(thread Joinable) *ThreadJoiner {
	return &ThreadJoiner{thread: thread}
}

// Get returns the managed thread handle.
func (j *ThreadJoiner) Get() Joinable {
	return j.thread
}

// Close joins the managed thread if it is joinable.
func (j *ThreadJoiner) Close() {
	j.once.Do(func() {
		if j.thread.Joinable() {
			j.thread.Join()
		}
	})
}
