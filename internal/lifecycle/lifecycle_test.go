package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksRunInRegistrationOrder(t *testing.T) {
	t.Parallel()

	m := New()
	var order []int
	m.On(PreInitConfigurator, func() error { order = append(order, 1); return nil })
	m.On(PreInitConfigurator, func() error { order = append(order, 2); return nil })
	m.On(PreInitConfigurator, func() error { order = append(order, 3); return nil })

	require.NoError(t, m.EnterState(PreInitConfigurator))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCurrentPhaseIsMonotonic(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.EnterState(PreInitConfigurator))
	require.NoError(t, m.EnterState(PostInitConfigurator))
	assert.Equal(t, PostInitConfigurator, m.Current())

	assert.Panics(t, func() {
		_ = m.EnterState(PreInitConfigurator)
	})
}

func TestPostShutdownIsTerminal(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.EnterState(PostShutdown))
	assert.True(t, m.Terminal())
}

func TestHookFailureAbortsTransition(t *testing.T) {
	t.Parallel()

	m := New()
	boom := errors.New("boom")
	var ran bool
	m.On(PreInitExecutor, func() error { return boom })
	m.On(PreInitExecutor, func() error { ran = true; return nil })

	err := m.EnterState(PreInitExecutor)
	require.Error(t, err)
	assert.False(t, ran, "hooks after a failing hook must not run")
	assert.ErrorIs(t, err, boom)
}

func TestPhaseStringRoundTrips(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "PreInit", PreInit.String())
	assert.Equal(t, "PostShutdown", PostShutdown.String())
}
