package container

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(Options{
		SystemConfigPath: filepath.Join(dir, "missing.yaml"),
		GrantsPath:       filepath.Join(dir, "grants.yaml"),
	})
	require.NoError(t, err)

	cfg := c.RuntimeConfig()
	assert.Equal(t, "standard", cfg.SecurityLevel)
	assert.Equal(t, "deno", cfg.Runner)
	assert.Zero(t, cfg.Timeout)
	assert.Positive(t, cfg.MaxConcurrentLaunches)

	assert.Empty(t, c.BaselineEntries())
	assert.Equal(t, filepath.Join(dir, "grants.yaml"), c.GrantStore().ConfigPath())
	assert.NotNil(t, c.LaunchService())
	assert.NotNil(t, c.Gatekeeper())
	assert.NotNil(t, c.ProfileLoader())
	assert.NotNil(t, c.FormatterFactory())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.SystemConfig())
}

func TestNew_OverridesConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "runner:\n  command: /opt/deno\n  version: '>= 1.0'\nsecurity:\n  level: strict\ntimeout: 1m\ncapabilities:\n  - kind: hrtime\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	c, err := New(Options{SystemConfigPath: configPath, GrantsPath: filepath.Join(dir, "g.yaml")})
	require.NoError(t, err)
	assert.Equal(t, "strict", c.RuntimeConfig().SecurityLevel)
	assert.Equal(t, "/opt/deno", c.RuntimeConfig().Runner)
	assert.Equal(t, time.Minute, c.RuntimeConfig().Timeout)
	assert.Len(t, c.BaselineEntries(), 1)

	c, err = New(Options{
		SystemConfigPath: configPath,
		GrantsPath:       filepath.Join(dir, "g.yaml"),
		SecurityLevel:    "permissive",
		Runner:           "deno-canary",
		RunnerVersion:    "^2",
		Timeout:          5 * time.Second,
		Parallel:         3,
	})
	require.NoError(t, err)
	cfg := c.RuntimeConfig()
	assert.Equal(t, "permissive", cfg.SecurityLevel)
	assert.Equal(t, "deno-canary", cfg.Runner)
	assert.Equal(t, "^2", cfg.RunnerVersion)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxConcurrentLaunches)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("capabilities:\n  - kind: process\n"), 0o600))

	_, err := New(Options{SystemConfigPath: configPath, GrantsPath: filepath.Join(dir, "g.yaml")})
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "system config", cfgErr.Aspect)
}
