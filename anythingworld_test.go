package anythingworld

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/anythingworld/types"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("AW_API_KEY", "")
	_, err := New()
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("AW_API_KEY", "k")
	t.Setenv("AW_MODE", "staging")
	c, err := New()
	require.NoError(t, err)
	assert.True(t, c.Staging())
}

func TestNewFromFile(t *testing.T) {
	t.Setenv("AW_API_KEY", "")
	path := filepath.Join(t.TempDir(), "anythingworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  key: from-file\npolling:\n  interval: 2s\n"), 0o600))

	c, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2s", c.PollOptions().Interval.String())
}
