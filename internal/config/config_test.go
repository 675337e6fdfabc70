package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCfg(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ados.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestInitializeRequiresPath(t *testing.T) {
	t.Parallel()

	s := New(nil)
	err := s.Initialize("")
	require.Error(t, err)
	assert.Equal(t, StatePreInit, s.State())
}

func TestInitializeOnlyOnce(t *testing.T) {
	t.Parallel()

	path := writeTempCfg(t, "executor:\n  executors: []\n")
	s := New(nil)
	require.NoError(t, s.Initialize(path))
	assert.Equal(t, StateInit, s.State())

	err := s.Initialize(path)
	require.Error(t, err)
}

func TestGetNodeOptionsByKeyFound(t *testing.T) {
	t.Parallel()

	path := writeTempCfg(t, "executor:\n  executors:\n    - type: guard_thread\n      name: work\nlog:\n  level: info\n")
	s := New(nil)
	require.NoError(t, s.Initialize(path))

	node, err := s.GetNodeOptionsByKey("executor")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.False(t, IsNull(node))

	node, err = s.GetNodeOptionsByKey("log")
	require.NoError(t, err)
	require.NotNil(t, node)
}

func TestGetNodeOptionsByKeyMissingIsNilNotError(t *testing.T) {
	t.Parallel()

	path := writeTempCfg(t, "executor:\n  executors: []\n")
	s := New(nil)
	require.NoError(t, s.Initialize(path))

	node, err := s.GetNodeOptionsByKey("does_not_exist")
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.True(t, IsNull(node))
}

func TestGetNodeOptionsByKeyOnlyAllowedDuringInit(t *testing.T) {
	t.Parallel()

	path := writeTempCfg(t, "executor:\n  executors: []\n")
	s := New(nil)
	require.NoError(t, s.Initialize(path))
	require.NoError(t, s.Start())

	_, err := s.GetNodeOptionsByKey("executor")
	require.Error(t, err)
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	path := writeTempCfg(t, "executor:\n  executors: []\n")
	s := New(nil)
	require.NoError(t, s.Initialize(path))

	s.Shutdown()
	s.Shutdown()
	assert.Equal(t, StateShutdown, s.State())
}

func TestInitializeMissingFileFails(t *testing.T) {
	t.Parallel()

	s := New(nil)
	err := s.Initialize(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
