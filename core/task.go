package core

// Task is the unit of work (Closure).
//
// Tasks are opaque to the Engine: it stores them, hands each one to exactly
// one worker and calls it. Results travel through the Future paired with the
// task by NewPackagedTask.
type Task func()

// Bind fixes the argument of fn, producing a zero-argument task body.
// arg is captured when Bind is called, not when the task runs.
func Bind[A, T any](fn func(A) (T, error), arg A) func() (T, error) {
	return func() (T, error) {
		return fn(arg)
	}
}
