package executor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxpilot/ados/internal/logging"
	"github.com/nxpilot/ados/internal/threadpolicy"
)

type wheelState uint32

const (
	wheelPreInit wheelState = iota
	wheelInit
	wheelStart
	wheelShutdown
)

const maxSleepChunk = time.Second

// TimeWheelExecutorOptions configures a TimeWheelExecutor. DtUs defaults to
// 1000 (1ms) and WheelSize defaults to [1000, 600] when left zero.
type TimeWheelExecutorOptions struct {
	BindExecutor      string
	ThreadSchedPolicy string
	ThreadBindCPU     []uint32
	DtUs              uint64
	WheelSize         []uint64
}

type taskEntry struct {
	tickCount uint64
	task      Task
}

// wheelLevel is one level of the hierarchical wheel: a circular buffer of
// buckets, a cursor, and the scale (cumulative product of this level's size
// and every size before it).
type wheelLevel struct {
	size       uint64
	scale      uint64
	currentPos uint64
	buckets    [][]taskEntry
}

// tick advances the cursor by one slot, returning the bucket it just left.
// When the cursor wraps back to 0 it invokes borrow to pull fresh entries
// down from the next level (or the overflow map for the top level) and
// redistributes them across this level's buckets. scale is the cumulative
// span of this level and every level below it, so a raw tickCount % scale
// would range over [0, scale) — too wide for a lvl.size-length bucket slice
// whenever a lower level exists. Dividing out that lower span first (scale /
// size, the next level down's own scale, or 1 at the base level) collapses
// the index back into [0, size).
func (lvl *wheelLevel) tick(borrow func() []taskEntry) []taskEntry {
	list := lvl.buckets[lvl.currentPos]
	lvl.buckets[lvl.currentPos] = nil

	lvl.currentPos++
	if lvl.currentPos == lvl.size {
		lvl.currentPos = 0
		fresh := borrow()
		lowerScale := lvl.scale / lvl.size
		for _, e := range fresh {
			idx := (e.tickCount / lowerScale) % lvl.size
			lvl.buckets[idx] = append(lvl.buckets[idx], e)
		}
	}
	return list
}

// TimeWheelExecutor is a hierarchical timing wheel: cheap O(1) scheduling
// and tick advancement, at the cost of only tick-quantised firing times.
type TimeWheelExecutor struct {
	name   string
	opts   TimeWheelExecutorOptions
	logger *logging.Logger

	state atomic.Uint32

	dtNanos uint64

	mu              sync.RWMutex
	levels          []*wheelLevel
	overflow        map[uint64][]taskEntry
	overflowPos     uint64
	currentTickCount uint64
	startTimePointNs uint64

	started chan struct{}
	done    chan struct{}
}

// NewTimeWheelExecutor applies the option defaults but neither builds the
// wheel's levels (Initialize does that) nor starts the timer goroutine
// (Start does that).
func NewTimeWheelExecutor(name string, opts TimeWheelExecutorOptions, logger *logging.Logger) *TimeWheelExecutor {
	if logger == nil {
		logger = logging.Default("executor.time_wheel")
	}
	if opts.DtUs == 0 {
		opts.DtUs = 1000
	}
	if len(opts.WheelSize) == 0 {
		opts.WheelSize = []uint64{1000, 600}
	}

	w := &TimeWheelExecutor{
		name:    name,
		opts:    opts,
		logger:  logger,
		dtNanos: opts.DtUs * 1000,
		overflow: make(map[uint64][]taskEntry),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	return w
}

// Initialize builds the wheel levels. May only be called once.
func (w *TimeWheelExecutor) Initialize() error {
	if !w.state.CompareAndSwap(uint32(wheelPreInit), uint32(wheelInit)) {
		return errWheelAlreadyInitialized
	}

	cumulative := uint64(1)
	for i, size := range w.opts.WheelSize {
		startPos := uint64(0)
		if i > 0 {
			startPos = 1
		}
		cumulative *= size
		w.levels = append(w.levels, &wheelLevel{
			size:       size,
			scale:      cumulative,
			currentPos: startPos,
			buckets:    make([][]taskEntry, size),
		})
	}
	w.overflowPos = 1

	w.logger.Info("time wheel executor init completed", logging.String("executor", w.name))
	return nil
}

// Start spawns the timer goroutine and blocks until it has recorded its
// start time, mirroring the one-shot start signal the timer thread raises.
func (w *TimeWheelExecutor) Start() error {
	if !w.state.CompareAndSwap(uint32(wheelInit), uint32(wheelStart)) {
		return errWheelNotInInit
	}
	go w.timerLoop()
	<-w.started
	w.logger.Info("time wheel executor start completed", logging.String("executor", w.name))
	return nil
}

// Shutdown is idempotent: the first caller signals the timer goroutine and
// waits for it to exit, then drops all pending state. Pending tasks are not
// drained — they are dropped along with the wheel.
func (w *TimeWheelExecutor) Shutdown() {
	var old wheelState
	for {
		old = wheelState(w.state.Load())
		if old == wheelShutdown {
			return
		}
		if w.state.CompareAndSwap(uint32(old), uint32(wheelShutdown)) {
			break
		}
	}

	if old == wheelPreInit || old == wheelInit {
		return
	}

	<-w.done

	w.mu.Lock()
	w.levels = nil
	w.overflow = nil
	w.mu.Unlock()

	w.logger.Info("time wheel executor shutdown", logging.String("executor", w.name))
}

func (w *TimeWheelExecutor) borrowFor(i int) func() []taskEntry {
	return func() []taskEntry {
		if i < len(w.levels)-1 {
			return w.levels[i+1].tick(w.borrowFor(i + 1))
		}
		return w.popOverflow()
	}
}

func (w *TimeWheelExecutor) popOverflow() []taskEntry {
	list := w.overflow[w.overflowPos]
	delete(w.overflow, w.overflowPos)
	w.overflowPos++
	return list
}

func (w *TimeWheelExecutor) timerLoop() {
	defer close(w.done)

	runtime.LockOSThread()

	policy := threadpolicy.Policy{
		Name:        w.name,
		SchedPolicy: w.opts.ThreadSchedPolicy,
		BindCPU:     w.opts.ThreadBindCPU,
	}
	if err := threadpolicy.Apply(policy); err != nil {
		w.logger.Error("set thread policy for time wheel executor failed", logging.String("executor", w.name), logging.Err(err))
	}

	lastLoop := time.Now()
	w.startTimePointNs = uint64(lastLoop.UnixNano())
	close(w.started)

	dt := time.Duration(w.dtNanos)

	for wheelState(w.state.Load()) != wheelShutdown {
		realDt := dt
		for {
			sleepTime := realDt
			if sleepTime > maxSleepChunk {
				sleepTime = maxSleepChunk
			}
			realDt -= sleepTime

			if realDt > 0 && dt < maxSleepChunk && realDt <= dt {
				sleepTime += realDt
				realDt = 0
			}

			lastLoop = lastLoop.Add(sleepTime)
			time.Sleep(time.Until(lastLoop))

			if wheelState(w.state.Load()) == wheelShutdown || realDt <= 0 {
				break
			}
		}
		if wheelState(w.state.Load()) == wheelShutdown {
			return
		}

		w.mu.Lock()
		taskList := w.levels[0].tick(w.borrowFor(0))
		if len(taskList) > 0 {
			w.mu.Unlock()
			for _, e := range taskList {
				w.runTask(e.task)
			}
			w.mu.Lock()
		}
		w.currentTickCount++
		w.mu.Unlock()
	}
}

func (w *TimeWheelExecutor) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Fatal("time wheel executor run task panicked", logging.Any("recover", r), logging.String("executor", w.name))
		}
	}()
	task()
}

func (w *TimeWheelExecutor) Type() Type   { return TypeTimeWheel }
func (w *TimeWheelExecutor) Name() string { return w.name }
func (w *TimeWheelExecutor) ThreadSafe() bool { return true }

// Execute is unsupported: the wheel only accepts timed submissions.
func (w *TimeWheelExecutor) Execute(task Task) {
	w.logger.Error("execute unsupported on time_wheel executor", logging.String("executor", w.name))
}

func (w *TimeWheelExecutor) SupportTimerSchedule() bool { return true }

// Now returns tick-quantised wall-clock time: start time plus elapsed ticks
// times dt, read under a shared lock.
func (w *TimeWheelExecutor) Now() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return time.Unix(0, int64(w.startTimePointNs+w.currentTickCount*w.dtNanos))
}

// ExecuteAt places task into the wheel level (or overflow map) that covers
// tp. A tp already in the past relative to the current tick fires task
// immediately on the caller's goroutine. After Shutdown the task is logged
// and dropped.
func (w *TimeWheelExecutor) ExecuteAt(tp time.Time, task Task) {
	w.mu.Lock()

	if w.overflow == nil {
		w.mu.Unlock()
		w.logger.Error("time wheel executor is shut down, task dropped", logging.String("executor", w.name))
		return
	}

	tpNs := uint64(tp.UnixNano())
	if tpNs < w.startTimePointNs+w.currentTickCount*w.dtNanos {
		w.mu.Unlock()
		w.runTask(task)
		return
	}
	virtualTp := tpNs - w.startTimePointNs

	targetTick := virtualTp / w.dtNanos
	tmpCur := w.currentTickCount
	diff := targetTick - w.currentTickCount

	for i, lvl := range w.levels {
		if diff < lvl.size {
			pos := (diff + tmpCur) % lvl.size
			lvl.buckets[pos] = append(lvl.buckets[pos], taskEntry{tickCount: targetTick, task: task})
			w.mu.Unlock()
			return
		}
		diff /= lvl.size
		tmpCur /= lvl.size
	}

	key := diff + tmpCur
	w.overflow[key] = append(w.overflow[key], taskEntry{tickCount: targetTick, task: task})
	w.mu.Unlock()
}

// CurrentTaskNum reports a best-effort pending task count by summing every
// level's buckets and the overflow map under a shared lock.
func (w *TimeWheelExecutor) CurrentTaskNum() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var n uint64
	for _, lvl := range w.levels {
		for _, bucket := range lvl.buckets {
			n += uint64(len(bucket))
		}
	}
	for _, list := range w.overflow {
		n += uint64(len(list))
	}
	return n
}

// pendingKeys is a test/debug helper returning the sorted overflow map keys.
func (w *TimeWheelExecutor) pendingKeys() []uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]uint64, 0, len(w.overflow))
	for k := range w.overflow {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
