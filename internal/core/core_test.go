package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCfg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ados.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMinimumViableLifecycle(t *testing.T) {
	t.Parallel()

	path := writeCfg(t, "log:\n  level: info\nexecutor:\n")
	c := New(nil)

	require.NoError(t, c.Initialize(Options{CfgFilePath: path}))
	assert.Equal(t, []string{"nxpilot_main", "nxpilot_guard"}, c.ExecutorManager().UsedExecutorNames())

	done := make(chan error, 1)
	go func() { done <- c.Start() }()

	time.Sleep(20 * time.Millisecond)
	c.Shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestOrderingViolationIsFatal(t *testing.T) {
	t.Parallel()

	path := writeCfg(t, "executor:\n  executors:\n    - type: guard_thread\n      name: g\n    - type: main_thread\n      name: m\n")
	c := New(nil)

	err := c.Initialize(Options{CfgFilePath: path})
	require.Error(t, err)
}

func TestUnknownExecutorTypeIsFatal(t *testing.T) {
	t.Parallel()

	path := writeCfg(t, "executor:\n  executors:\n    - type: jet_engine\n      name: x\n")
	c := New(nil)

	err := c.Initialize(Options{CfgFilePath: path})
	require.Error(t, err)
}

func TestShutdownIsIdempotentAcrossGoroutines(t *testing.T) {
	t.Parallel()

	path := writeCfg(t, "executor:\n")
	c := New(nil)
	require.NoError(t, c.Initialize(Options{CfgFilePath: path}))

	done := make(chan error, 1)
	go func() { done <- c.Start() }()
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 5; i++ {
		go c.Shutdown()
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after concurrent Shutdown calls")
	}
}

func TestCloseDoesNotPanic(t *testing.T) {
	t.Parallel()

	c := New(nil)
	assert.NotPanics(t, c.Close)
}
