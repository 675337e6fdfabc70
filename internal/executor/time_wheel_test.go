package executor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedWheel(t *testing.T, opts TimeWheelExecutorOptions) *TimeWheelExecutor {
	t.Helper()
	w := NewTimeWheelExecutor("test_wheel", opts, nil)
	require.NoError(t, w.Initialize())
	require.NoError(t, w.Start())
	t.Cleanup(w.Shutdown)
	return w
}

func TestTimeWheelBasicDispatch(t *testing.T) {
	t.Parallel()

	w := newStartedWheel(t, TimeWheelExecutorOptions{DtUs: 1000, WheelSize: []uint64{100, 10}})

	fired := make(chan time.Time, 1)
	start := time.Now()
	w.ExecuteAt(start.Add(5*time.Millisecond), func() { fired <- time.Now() })

	select {
	case got := <-fired:
		delay := got.Sub(start)
		assert.GreaterOrEqual(t, delay, 5*time.Millisecond)
		assert.Less(t, delay, 50*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
}

func TestTimeWheelOverflowMigration(t *testing.T) {
	t.Parallel()

	w := newStartedWheel(t, TimeWheelExecutorOptions{DtUs: 1000, WheelSize: []uint64{10, 10}})

	fired := make(chan struct{}, 1)
	w.ExecuteAt(time.Now().Add(500*time.Millisecond), func() { close(fired) })

	assert.NotEmpty(t, w.pendingKeys(), "task with a delay beyond wheel span should land in overflow")

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("overflowed task never fired")
	}
}

func TestTimeWheelOverflowRedistributionIndexInBounds(t *testing.T) {
	t.Parallel()

	// A delay whose absolute tick count is not a multiple of the top
	// level's scale (550 ticks against wheel_size=[10,10], scale=100)
	// regression-tests the overflow-to-bucket redistribution index: it must
	// stay within the bucket slice's bounds instead of indexing by the raw
	// cumulative scale.
	w := newStartedWheel(t, TimeWheelExecutorOptions{DtUs: 1000, WheelSize: []uint64{10, 10}})

	fired := make(chan struct{}, 1)
	w.ExecuteAt(time.Now().Add(550*time.Millisecond), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("task with non-aligned overflow tick count never fired")
	}
}

func TestTimeWheelPastDeadlineFiresImmediately(t *testing.T) {
	t.Parallel()

	w := newStartedWheel(t, TimeWheelExecutorOptions{DtUs: 1000, WheelSize: []uint64{100, 10}})

	var ran atomic.Bool
	w.ExecuteAt(time.Now().Add(-time.Hour), func() { ran.Store(true) })
	assert.True(t, ran.Load())
}

func TestTimeWheelNowIsMonotonicNonDecreasing(t *testing.T) {
	t.Parallel()

	w := newStartedWheel(t, TimeWheelExecutorOptions{DtUs: 500, WheelSize: []uint64{100, 10}})

	prev := w.Now()
	for i := 0; i < 5; i++ {
		time.Sleep(5 * time.Millisecond)
		cur := w.Now()
		assert.False(t, cur.Before(prev))
		prev = cur
	}
}

func TestTimeWheelExecuteUnsupported(t *testing.T) {
	t.Parallel()

	w := newStartedWheel(t, TimeWheelExecutorOptions{})
	var ran atomic.Bool
	w.Execute(func() { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestTimeWheelShutdownResponsiveWithLongDt(t *testing.T) {
	t.Parallel()

	w := NewTimeWheelExecutor("long_dt_wheel", TimeWheelExecutorOptions{DtUs: 5_000_000, WheelSize: []uint64{10, 10}}, nil)
	require.NoError(t, w.Initialize())
	require.NoError(t, w.Start())

	start := time.Now()
	w.Shutdown()
	assert.Less(t, time.Since(start), 2*time.Second)
}
