package core

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// TaskQueue: FIFO storage for pending tasks
// =============================================================================

// TaskQueue holds pending tasks in submission order.
//
// TaskQueue has no lock of its own. The Engine only touches it from inside
// Synchronizer callbacks, which makes the Synchronizer lock the queue lock.
type TaskQueue struct {
	tasks []Task
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tasks: make([]Task, 0, defaultQueueCap),
	}
}

// Push appends t as the newest task.
func (q *TaskQueue) Push(t Task) {
	q.tasks = append(q.tasks, t)
}

// PopOldest removes and returns the oldest task.
func (q *TaskQueue) PopOldest() (Task, bool) {
	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Zero out the slot so the finished closure can be collected
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.maybeCompact()

	return t, true
}

func (q *TaskQueue) maybeCompact() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]Task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

// Len returns the number of pending tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// IsEmpty reports whether no task is pending.
func (q *TaskQueue) IsEmpty() bool {
	return len(q.tasks) == 0
}
