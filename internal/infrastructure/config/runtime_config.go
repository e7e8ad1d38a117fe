package config

import (
	"runtime"
	"time"

	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
	"github.com/reglet-dev/permrun/internal/infrastructure/system"
)

// RuntimeConfig aggregates all runtime configuration.
// This is a value object that flows through the system.
type RuntimeConfig struct {
	// Security
	SecurityLevel string

	// Runner
	Runner        string
	RunnerVersion string

	// Timing
	Timeout time.Duration

	// Concurrency
	MaxConcurrentLaunches int
}

// FromSystemConfig creates RuntimeConfig from system config.
// An invalid timeout was already rejected when the config was loaded.
func FromSystemConfig(sys *system.Config) *RuntimeConfig {
	timeout, _ := sys.GetTimeout()
	return &RuntimeConfig{
		SecurityLevel: string(sys.Security.GetSecurityLevel()),
		Runner:        sys.Runner.Command,
		RunnerVersion: sys.Runner.Version,
		Timeout:       timeout,
	}
}

// ApplyDefaults applies defaults for zero values.
func (r *RuntimeConfig) ApplyDefaults() {
	if r.SecurityLevel == "" {
		r.SecurityLevel = string(system.SecurityLevelStandard)
	}
	if r.Runner == "" {
		r.Runner = launcher.DefaultRunner
	}
	if r.MaxConcurrentLaunches <= 0 {
		r.MaxConcurrentLaunches = runtime.NumCPU()
	}
}
