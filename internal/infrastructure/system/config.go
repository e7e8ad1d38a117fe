// Package system provides infrastructure for system-level configuration.
// This includes loading the system config file (~/.permrun/config.yaml).
package system

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// Config represents the global configuration file (~/.permrun/config.yaml).
// Launch profiles and CLI flags override it.
type Config struct {
	Runner       RunnerConfig       `yaml:"runner"`
	Security     SecurityConfig     `yaml:"security"`
	Timeout      string             `yaml:"timeout"`
	Capabilities []CapabilityConfig `yaml:"capabilities"`
}

// RunnerConfig selects the launch runner.
type RunnerConfig struct {
	// Command is the runner binary (looked up in PATH)
	Command string `yaml:"command"`

	// Version is an optional semver constraint, e.g. ">= 1.40"
	Version string `yaml:"version"`
}

// CapabilityConfig is a baseline grant added to every launch.
type CapabilityConfig struct {
	Kind   string   `yaml:"kind"`
	Params []string `yaml:"params"`
}

// SecurityConfig configures capability security policies.
type SecurityConfig struct {
	// Level defines the security policy: "strict", "standard", or "permissive"
	// - strict: Deny all broad capabilities
	// - standard: Prompt for broad capabilities (default)
	// - permissive: Allow all capabilities with a warning
	Level string `yaml:"level"`
}

// SecurityLevel represents the security enforcement level.
type SecurityLevel string

const (
	// SecurityLevelStrict denies broad capabilities
	SecurityLevelStrict SecurityLevel = "strict"

	// SecurityLevelStandard prompts for broad capabilities (default)
	SecurityLevelStandard SecurityLevel = "standard"

	// SecurityLevelPermissive allows all capabilities
	SecurityLevelPermissive SecurityLevel = "permissive"
)

// GetSecurityLevel returns the configured security level, defaulting to Standard.
func (c *SecurityConfig) GetSecurityLevel() SecurityLevel {
	switch c.Level {
	case "strict":
		return SecurityLevelStrict
	case "standard":
		return SecurityLevelStandard
	case "permissive":
		return SecurityLevelPermissive
	default:
		// Default to standard if not specified or invalid
		return SecurityLevelStandard
	}
}

// GetTimeout parses the configured timeout. Empty means no limit.
func (c *Config) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// ToEntries converts the baseline grants to capability entries.
// Read and write paths are canonicalized and must exist; other parameters
// are taken verbatim (net entries as host or host:port).
func (c *Config) ToEntries() ([]capabilities.Entry, error) {
	entries := make([]capabilities.Entry, 0, len(c.Capabilities))
	for i, cc := range c.Capabilities {
		var (
			d   capabilities.Descriptor
			err error
		)
		switch cc.Kind {
		case string(capabilities.KindRead):
			d, err = capabilities.Read(cc.Params...)
		case string(capabilities.KindWrite):
			d, err = capabilities.Write(cc.Params...)
		default:
			d, err = capabilities.Restore(cc.Kind, cc.Params)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid capability at index %d: %w", i, err)
		}
		entries = append(entries, d)
	}
	return entries, nil
}

// ConfigLoader loads system configuration from disk.
type ConfigLoader struct{}

// NewConfigLoader creates a new system config loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// DefaultConfig returns a Config with safe defaults for all fields.
// This is used when no system config file exists.
func DefaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{
			Command: "deno",
		},
		Security: SecurityConfig{
			Level: string(SecurityLevelStandard),
		},
		Capabilities: []CapabilityConfig{},
	}
}

// Load loads the system configuration from the specified path.
// If the file does not exist, returns DefaultConfig() with safe defaults.
// Fields missing from the file keep their defaults.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	//nolint:gosec // G304: path is user-provided config file, validated to exist above
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	if _, err := config.GetTimeout(); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return config, nil
}
