package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.Equal(t, 1.5, cfg.Retry.Multiplier)
	require.Equal(t, "gemini-2.5-flash", cfg.Model.Name)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
model:
  name: gemini-2.5-pro
retry:
  max_attempts: 5
  initial_delay: 500ms
index:
  chunk_lines: 60
  overlap_lines: 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-pro", cfg.Model.Name)
	require.Equal(t, 5, cfg.Retry.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	require.Equal(t, 60, cfg.Index.ChunkLines)
	// Unset fields keep their defaults.
	require.Equal(t, 1.5, cfg.Retry.Multiplier)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CODESMITH_MODEL", "gemini-exp")
	t.Setenv("CODESMITH_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("CODESMITH_API_KEY", "key-from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "gemini-exp", cfg.Model.Name)
	require.Equal(t, 7, cfg.Retry.MaxAttempts)
	require.Equal(t, "key-from-env", cfg.Model.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_attempts")
}
