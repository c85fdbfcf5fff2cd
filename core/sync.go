package core

import "sync"

// =============================================================================
// Synchronizer: the single lock/condition pair shared by an Engine's workers
// =============================================================================

// Unlocker is the lock handle passed to WaitUntil callbacks.
// Calling Unlock releases the lock early; the Synchronizer will not release it again.
type Unlocker interface {
	Unlock()
}

// Synchronizer guards the engine state with one mutex and one condition variable.
type Synchronizer interface {
	// WaitUntil blocks until predicate returns true while holding the lock,
	// then invokes onWake with the lock still held.
	//
	// The predicate is rechecked after every wakeup, so spurious wakeups are harmless.
	// WaitUntil does not return before onWake returns. If onWake did not release
	// the lock, it is released on the way out, also when onWake panics.
	WaitUntil(predicate func() bool, onWake func(lock Unlocker))

	// WakeOne wakes one goroutine blocked in WaitUntil, if any.
	WakeOne()

	// WakeAll wakes every goroutine blocked in WaitUntil.
	WakeAll()

	// RunProtected runs fn with the lock held and releases it on every exit path.
	RunProtected(fn func())
}

// Sync is the Synchronizer backed by sync.Mutex and sync.Cond.
type Sync struct {
	mu   sync.Mutex
	cond *sync.Cond
}

var _ Synchronizer = (*Sync)(nil)

// NewSync creates a ready to use Sync.
func NewSync() *Sync {
	s := &Sync{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// heldLock tracks whether the owning goroutine still holds the mutex.
// It is only touched by the goroutine inside WaitUntil, so it needs no locking of its own.
type heldLock struct {
	mu   *sync.Mutex
	held bool
}

func (l *heldLock) Unlock() {
	if !l.held {
		return
	}
	l.held = false
	l.mu.Unlock()
}

// WaitUntil implements Synchronizer.
func (s *Sync) WaitUntil(predicate func() bool, onWake func(lock Unlocker)) {
	s.mu.Lock()
	lock := &heldLock{mu: &s.mu, held: true}
	defer lock.Unlock()

	for !predicate() {
		s.cond.Wait()
	}

	onWake(lock)
}

// WakeOne implements Synchronizer.
func (s *Sync) WakeOne() {
	s.cond.Signal()
}

// WakeAll implements Synchronizer.
func (s *Sync) WakeAll() {
	s.cond.Broadcast()
}

// RunProtected implements Synchronizer.
func (s *Sync) RunProtected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
