package executor

import (
	"time"

	"github.com/nxpilot/ados/internal/logging"
	"github.com/nxpilot/ados/internal/threadpolicy"
)

// MainThreadExecutor is a handle to the thread that calls Initialize: it
// applies the configured thread policy to the calling OS thread and then
// exposes that thread's identity to the rest of the runtime. It does not
// own a loop of its own — the caller's own control loop is the "work" it
// represents.
type MainThreadExecutor struct {
	name   string
	logger *logging.Logger
}

// NewMainThreadExecutor applies policy to the calling OS thread (which must
// already be locked via runtime.LockOSThread by the caller) and returns the
// executor handle. Thread-policy failures are logged, not returned, per the
// "thread-policy failure does not abort the executor" rule.
func NewMainThreadExecutor(name string, policy threadpolicy.Policy, logger *logging.Logger) *MainThreadExecutor {
	if logger == nil {
		logger = logging.Default("executor.main_thread")
	}
	policy.Name = name
	if err := threadpolicy.Apply(policy); err != nil {
		logger.Error("thread policy failed", logging.String("executor", name), logging.Err(err))
	}
	return &MainThreadExecutor{name: name, logger: logger}
}

func (e *MainThreadExecutor) Type() Type { return TypeMainThread }
func (e *MainThreadExecutor) Name() string { return e.name }
func (e *MainThreadExecutor) ThreadSafe() bool { return true }

// Execute is a permanent no-op: the main-thread executor has no queue to
// submit into. Every call is reported as a transient submission error.
func (e *MainThreadExecutor) Execute(task Task) {
	e.logger.Error("execute unsupported on main_thread executor", logging.String("executor", e.name))
}

func (e *MainThreadExecutor) SupportTimerSchedule() bool { return false }

func (e *MainThreadExecutor) Now() time.Time {
	e.logger.Error("now unsupported on main_thread executor", logging.String("executor", e.name))
	return time.Time{}
}

func (e *MainThreadExecutor) ExecuteAt(tp time.Time, task Task) {
	e.logger.Error("executeAt unsupported on main_thread executor", logging.String("executor", e.name))
}

// CurrentTaskNum is always 1: the caller's own thread is the one task this
// executor conceptually represents.
func (e *MainThreadExecutor) CurrentTaskNum() uint64 { return 1 }
