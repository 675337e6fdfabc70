package executor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxpilot/ados/internal/logging"
	"github.com/nxpilot/ados/internal/threadpolicy"
)

type guardState uint32

const (
	guardPreInit guardState = iota
	guardInit
	guardStart
	guardShutdown
)

// defaultQueueThreshold matches the documented default for an unconfigured
// guard-thread executor.
const defaultQueueThreshold = 10000

// GuardThreadExecutorOptions configures a GuardThreadExecutor.
type GuardThreadExecutorOptions struct {
	ThreadSchedPolicy string
	ThreadBindCPU     []uint32
	QueueThreshold    uint32
}

// GuardThreadExecutor is a single worker goroutine draining a bounded FIFO
// queue, with early-rejection backpressure on submission.
type GuardThreadExecutor struct {
	name    string
	opts    GuardThreadExecutorOptions
	logger  *logging.Logger
	warnAt  uint32

	state atomic.Uint32

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task
	done     chan struct{}

	queueTaskNum atomic.Uint32
}

// NewGuardThreadExecutor constructs the executor but does not start its
// worker goroutine; call Initialize for that.
func NewGuardThreadExecutor(name string, opts GuardThreadExecutorOptions, logger *logging.Logger) *GuardThreadExecutor {
	if logger == nil {
		logger = logging.Default("executor.guard_thread")
	}
	if opts.QueueThreshold == 0 {
		opts.QueueThreshold = defaultQueueThreshold
	}
	e := &GuardThreadExecutor{
		name:   name,
		opts:   opts,
		logger: logger,
		warnAt: uint32(float64(opts.QueueThreshold) * 0.95),
		done:   make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Initialize spawns the worker goroutine. May only be called once.
func (e *GuardThreadExecutor) Initialize() error {
	if !e.state.CompareAndSwap(uint32(guardPreInit), uint32(guardInit)) {
		return errGuardAlreadyInitialized
	}
	go e.run()
	e.logger.Info("guard thread executor init completed", logging.String("executor", e.name))
	return nil
}

// Start allows Execute to begin servicing submissions.
func (e *GuardThreadExecutor) Start() error {
	if !e.state.CompareAndSwap(uint32(guardInit), uint32(guardStart)) {
		return errGuardNotInInit
	}
	e.logger.Info("guard thread executor start completed", logging.String("executor", e.name))
	return nil
}

// Shutdown is idempotent: the first caller wakes the worker and blocks
// until it exits; later callers return immediately.
func (e *GuardThreadExecutor) Shutdown() {
	for {
		old := guardState(e.state.Load())
		if old == guardShutdown {
			return
		}
		if e.state.CompareAndSwap(uint32(old), uint32(guardShutdown)) {
			break
		}
	}

	e.mu.Lock()
	e.cond.Signal()
	e.mu.Unlock()

	<-e.done
	e.logger.Info("guard thread executor shutdown", logging.String("executor", e.name))
}

func (e *GuardThreadExecutor) run() {
	defer close(e.done)

	runtime.LockOSThread()

	policy := threadpolicy.Policy{
		Name:        e.name,
		SchedPolicy: e.opts.ThreadSchedPolicy,
		BindCPU:     e.opts.ThreadBindCPU,
	}
	if err := threadpolicy.Apply(policy); err != nil {
		e.logger.Error("set thread policy for guard thread failed", logging.String("executor", e.name), logging.Err(err))
	}

	for guardState(e.state.Load()) != guardShutdown {
		e.mu.Lock()
		for len(e.queue) == 0 && guardState(e.state.Load()) != guardShutdown {
			e.cond.Wait()
		}
		local := e.queue
		e.queue = nil
		e.mu.Unlock()

		e.drain(local)
	}

	// After shutdown, swap out whatever is still queued (under the lock, as
	// in the loop above) and drain it, so accepted tasks are not discarded.
	e.mu.Lock()
	local := e.queue
	e.queue = nil
	e.mu.Unlock()
	e.drain(local)
}

func (e *GuardThreadExecutor) drain(tasks []Task) {
	for _, task := range tasks {
		e.runTask(task)
	}
}

func (e *GuardThreadExecutor) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Fatal("guard thread executor run task panicked", logging.Any("recover", r), logging.String("executor", e.name))
		}
		e.queueTaskNum.Add(^uint32(0))
	}()
	task()
}

func (e *GuardThreadExecutor) Type() Type   { return TypeGuardThread }
func (e *GuardThreadExecutor) Name() string { return e.name }
func (e *GuardThreadExecutor) ThreadSafe() bool { return true }

// Execute enqueues task if the executor is in Start state and below its
// queue threshold; otherwise it logs and drops.
func (e *GuardThreadExecutor) Execute(task Task) {
	if guardState(e.state.Load()) != guardStart {
		e.logger.Error("guard thread executor can only execute task when state is 'Start'", logging.String("executor", e.name))
		return
	}

	cur := e.queueTaskNum.Add(1)

	if cur > e.opts.QueueThreshold {
		e.logger.Error("guard thread executor queue threshold reached, task dropped",
			logging.String("executor", e.name), logging.Uint32("threshold", e.opts.QueueThreshold))
		e.queueTaskNum.Add(^uint32(0))
		return
	}

	if cur > e.warnAt {
		e.logger.Warn("guard thread executor queue nearing threshold",
			logging.String("executor", e.name), logging.Uint32("queue_task_num", cur), logging.Uint32("threshold", e.opts.QueueThreshold))
	}

	e.mu.Lock()
	e.queue = append(e.queue, task)
	e.cond.Signal()
	e.mu.Unlock()
}

func (e *GuardThreadExecutor) SupportTimerSchedule() bool { return false }

func (e *GuardThreadExecutor) Now() time.Time {
	e.logger.Error("now unsupported on guard_thread executor", logging.String("executor", e.name))
	return time.Time{}
}

func (e *GuardThreadExecutor) ExecuteAt(tp time.Time, task Task) {
	e.logger.Error("executeAt unsupported on guard_thread executor", logging.String("executor", e.name))
}

func (e *GuardThreadExecutor) CurrentTaskNum() uint64 {
	return uint64(e.queueTaskNum.Load())
}
