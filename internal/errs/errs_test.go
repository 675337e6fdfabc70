package errs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapConfigMessageDoesNotDuplicateCause(t *testing.T) {
	t.Parallel()

	err := WrapConfig(os.ErrNotExist, "read config")
	require.Error(t, err)
	assert.Equal(t, "read config: "+os.ErrNotExist.Error(), err.Error())
}

func TestWrapConfigNilIsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapConfig(nil, "read config"))
}

func TestWrapConfigPreservesCauseForUnwrap(t *testing.T) {
	t.Parallel()

	err := WrapConfig(os.ErrNotExist, "read config %q", "path.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, `read config "path.yaml": `+os.ErrNotExist.Error(), err.Error())
}

func TestConfigBuildsPlainMessage(t *testing.T) {
	t.Parallel()

	err := Config("bad %s", "thing")
	require.Error(t, err)
	assert.Equal(t, "bad thing", err.Error())
}

func TestIsConfig(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConfig(Config("boom")))
	assert.False(t, IsConfig(os.ErrNotExist))
}
