package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the steelman config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(fallbackAPIKeyEnv, "")
	dir := filepath.Join(home, ".config", "steelman")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_YAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `analysis:
  api_key: from-file
  model: gemini-1.5-pro
  rate_limit_max: 10
  rate_limit_window: 30s
discussion:
  max_statements_per_user: 4
store:
  driver: sqlite
  path: /tmp/steelman.db
logging:
  level: debug
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Analysis.APIKey.Value())
	assert.Equal(t, "gemini-1.5-pro", cfg.Analysis.Model)
	assert.Equal(t, 10, cfg.Analysis.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.Analysis.RateLimitWindow.Duration())
	assert.Equal(t, 4, cfg.Discussion.MaxStatementsPerUser)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched values keep their defaults
	assert.Equal(t, 3, cfg.Analysis.RetryMaxAttempts)
	assert.Equal(t, 2, cfg.Discussion.Participants)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "analysis:\n  api_key: from-file\n  model: file-model\n", 0600)

	t.Setenv("STEELMAN_ANALYSIS_MODEL", "env-model")
	t.Setenv("STEELMAN_STEELMANNING_MIN_LENGTH", "25")
	t.Setenv("STEELMAN_ANALYSIS_RETRY_BASE_DELAY", "2s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Analysis.Model)
	assert.Equal(t, 25, cfg.SteelManning.MinLength)
	assert.Equal(t, 2*time.Second, cfg.Analysis.RetryBaseDelay.Duration())
	assert.Equal(t, "from-file", cfg.Analysis.APIKey.Value())
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)
	t.Setenv(fallbackAPIKeyEnv, "fallback-key")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, "fallback-key", cfg.Analysis.APIKey.Value())
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoadWithFile_MissingKeyFailsValidation(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "analysis:\n  api_key: k\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, big, 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)
	other := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadWithFile(other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestLoadWithFile_RejectsSiblingPrefixDir(t *testing.T) {
	dir := setupTestHome(t)
	sibling := dir + "-evil"
	require.NoError(t, os.MkdirAll(sibling, 0700))

	_, err := LoadWithFile(filepath.Join(sibling, "config.yaml"))
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "analysis.api_key", envKey("STEELMAN_ANALYSIS_API_KEY"))
	assert.Equal(t, "store.driver", envKey("STEELMAN_STORE_DRIVER"))
	assert.Equal(t, "debug", envKey("STEELMAN_DEBUG"))
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	info, err := os.Stat(filepath.Join(home, ".config", "steelman"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
