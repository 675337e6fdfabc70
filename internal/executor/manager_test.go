package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	require.NoError(t, m.Initialize(nil))
	t.Cleanup(m.Shutdown)

	assert.Equal(t, []string{defaultMainThreadName, defaultGuardThreadName}, m.UsedExecutorNames())

	require.NoError(t, m.Start())
}

func TestManagerRejectsGuardBeforeMain(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	err := m.Initialize([]Spec{
		{Name: "g", Type: TypeGuardThread},
		{Name: "m", Type: TypeMainThread},
	})
	require.Error(t, err)
}

func TestManagerRejectsGuardAtSecondWithoutMainFirst(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	err := m.Initialize([]Spec{
		{Name: "t", Type: TypeTimeWheel},
		{Name: "g", Type: TypeGuardThread},
	})
	require.Error(t, err)
}

func TestManagerRejectsUnknownType(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	err := m.Initialize([]Spec{
		{Name: "x", Type: "jet_engine"},
	})
	require.Error(t, err)
}

func TestManagerConstructsTimeWheel(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	require.NoError(t, m.Initialize([]Spec{
		{Name: "wheel", Type: TypeTimeWheel},
	}))
	t.Cleanup(m.Shutdown)
	require.NoError(t, m.Start())

	assert.Equal(t, []string{defaultMainThreadName, defaultGuardThreadName, "wheel"}, m.UsedExecutorNames())
	assert.NotNil(t, m.Get("wheel"))
}

func TestManagerRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	err := m.Initialize([]Spec{
		{Name: defaultMainThreadName, Type: TypeTimeWheel},
	})
	require.Error(t, err)
}

func TestManagerShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewManager(nil)
	require.NoError(t, m.Initialize(nil))
	require.NoError(t, m.Start())

	m.Shutdown()
	m.Shutdown()
}
