package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("positional build path", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		cfg, exit, err := Parse([]string{"pkg/build"}, out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "pkg/build", cfg.BuildPath)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.False(t, cfg.DoFetch)
	})

	t.Run("flag form wins over shorthand", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		cfg, _, err := Parse([]string{"--build", "x", "-b", "y"}, out)
		require.NoError(t, err)
		assert.Equal(t, "x", cfg.BuildPath)
	})

	t.Run("fetch options", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		cfg, _, err := Parse([]string{"--fetch", "--fetch-dir", "vendor", "pkg"}, out)
		require.NoError(t, err)
		assert.True(t, cfg.DoFetch)
		assert.Equal(t, "vendor", cfg.FetchDir)
	})

	t.Run("no path prints usage and exits cleanly", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(nil, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"--log-level", "loud", "pkg"}, out)
		require.Error(t, err)
		exitErr, ok := err.(*ExitError)
		require.True(t, ok)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"--log-format", "yaml", "pkg"}, out)
		require.Error(t, err)
	})

	t.Run("unknown flag", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		_, _, err := Parse([]string{"--bogus"}, out)
		require.Error(t, err)
		exitErr, ok := err.(*ExitError)
		require.True(t, ok)
		assert.Equal(t, 2, exitErr.Code)
	})
}
