package threadpolicy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateName(t *testing.T) {
	t.Parallel()

	short := "ados_main"
	assert.Equal(t, short, TruncateName(short))

	long := "long_thread_name_more_than_15_characters_long"
	got := TruncateName(long)
	assert.True(t, len(got) <= 15, "truncated name should fit the OS limit, got %q", got)
	assert.True(t, strings.HasPrefix(got, long[:8]))
	assert.True(t, strings.HasSuffix(got, long[len(long)-5:]))
}

func TestBindCPUEmptyIsNoop(t *testing.T) {
	t.Parallel()

	require.NoError(t, BindCPU(nil))
	require.NoError(t, BindCPU([]uint32{}))
}

func TestBindCPUInvalidIndexFails(t *testing.T) {
	t.Parallel()

	err := BindCPU([]uint32{1 << 20})
	require.Error(t, err)
}

func TestSetSchedValidation(t *testing.T) {
	t.Parallel()

	require.NoError(t, SetSched(""))
	require.NoError(t, SetSched("SCHED_OTHER"))

	for _, bad := range []string{"SCHED_INVALID", "SCHED_FIFO:99999999", "SCHED_FIFO", "SCHED_FIFO:"} {
		err := SetSched(bad)
		assert.Error(t, err, "expected %q to fail validation", bad)
	}
}
