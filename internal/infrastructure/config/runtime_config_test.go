package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/reglet-dev/permrun/internal/infrastructure/system"
	"github.com/stretchr/testify/assert"
)

func TestFromSystemConfig(t *testing.T) {
	t.Parallel()

	sys := system.DefaultConfig()
	sys.Security.Level = "strict"
	sys.Runner.Version = "^1.46"
	sys.Timeout = "2m"

	cfg := FromSystemConfig(sys)
	assert.Equal(t, "strict", cfg.SecurityLevel)
	assert.Equal(t, "deno", cfg.Runner)
	assert.Equal(t, "^1.46", cfg.RunnerVersion)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
}

func TestRuntimeConfig_ApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := &RuntimeConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, "standard", cfg.SecurityLevel)
	assert.Equal(t, "deno", cfg.Runner)
	assert.Equal(t, runtime.NumCPU(), cfg.MaxConcurrentLaunches)

	cfg = &RuntimeConfig{SecurityLevel: "permissive", Runner: "/opt/deno", MaxConcurrentLaunches: 2}
	cfg.ApplyDefaults()
	assert.Equal(t, "permissive", cfg.SecurityLevel)
	assert.Equal(t, "/opt/deno", cfg.Runner)
	assert.Equal(t, 2, cfg.MaxConcurrentLaunches)
}
