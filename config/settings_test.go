package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	for _, key := range []string{"ADDR", "DATABASE_URL", "MAX_ITERATIONS", "LINTER", "LINT_TIMEOUT_SECONDS", "LLM_MODEL", "MAX_UPLOAD_BYTES"} {
		t.Setenv(key, "")
	}

	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", s.Addr)
	assert.Equal(t, "", s.DatabaseDSN)
	assert.Equal(t, DefaultMaxIterations, s.MaxIterations)
	assert.Equal(t, "ruff", s.Linter)
	assert.Equal(t, 30*time.Second, s.LintTimeout)
	assert.Equal(t, "gpt-4o-mini", s.LLMModel)
	assert.Equal(t, int64(1<<20), s.MaxUploadBytes)
}

func TestLoadSettings_EnvFile(t *testing.T) {
	for _, key := range []string{"ADDR", "MAX_ITERATIONS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADDR=:9999\nMAX_ITERATIONS=5\n"), 0644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", s.Addr)
	assert.Equal(t, 5, s.MaxIterations)
}

func TestLoadSettings_BadInteger(t *testing.T) {
	t.Setenv("MAX_ITERATIONS", "lots")
	_, err := LoadSettings("")
	assert.Error(t, err)
}
