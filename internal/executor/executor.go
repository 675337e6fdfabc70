// Package executor implements the executor capability contract and the
// three concrete executor kinds (main-thread, guard-thread, timing-wheel)
// behind a manager that constructs, starts, and shuts them down in a fixed
// order.
package executor

import "time"

// Task is a unit of work submitted to an executor.
type Task func()

// Type identifies which concrete kind an executor is.
type Type string

const (
	TypeMainThread Type = "main_thread"
	TypeGuardThread Type = "guard_thread"
	TypeTimeWheel   Type = "time_wheel"
)

// Executor is the capability contract every concrete executor satisfies.
// Execute, Now, ExecuteAt, and CurrentTaskNum are non-throwing by contract:
// failures are reported to the executor's logger, never returned or
// panicked across the call.
type Executor interface {
	Type() Type
	Name() string

	// ThreadSafe reports whether Execute may be called concurrently from
	// multiple goroutines.
	ThreadSafe() bool

	// Execute submits task for immediate execution.
	Execute(task Task)

	// SupportTimerSchedule reports whether ExecuteAt/Now are meaningful for
	// this executor.
	SupportTimerSchedule() bool

	// Now returns the executor's notion of current time. Executors that do
	// not support timer scheduling report an error through their logger and
	// return the zero Time.
	Now() time.Time

	// ExecuteAt submits task to run at or after tp. If tp is already in the
	// past relative to the executor's clock, task runs immediately.
	ExecuteAt(tp time.Time, task Task)

	// CurrentTaskNum is a best-effort queue depth.
	CurrentTaskNum() uint64
}
