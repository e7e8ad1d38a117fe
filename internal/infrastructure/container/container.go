// Package container provides dependency injection for the application.
package container

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/reglet-dev/permrun/internal/application/ports"
	"github.com/reglet-dev/permrun/internal/application/services"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	infraCapabilities "github.com/reglet-dev/permrun/internal/infrastructure/capabilities"
	"github.com/reglet-dev/permrun/internal/infrastructure/config"
	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
	"github.com/reglet-dev/permrun/internal/infrastructure/output"
	"github.com/reglet-dev/permrun/internal/infrastructure/system"
)

// Container holds all application dependencies.
type Container struct {
	systemCfg        *system.Config
	runtimeCfg       *config.RuntimeConfig
	baseline         []capabilities.Entry
	grantStore       *infraCapabilities.FileStore
	gatekeeper       *services.CapabilityGatekeeper
	launchService    *services.LaunchService
	profileLoader    *config.ProfileLoader
	formatterFactory *output.FormatterFactory
	logger           *slog.Logger
}

// Options configure the container. Empty overrides fall back to the system
// config file.
type Options struct {
	Logger           *slog.Logger
	SystemConfigPath string
	GrantsPath       string

	// Overrides from flags or environment
	SecurityLevel string
	Runner        string
	RunnerVersion string
	Timeout       time.Duration
	Parallel      int

	// Child stdio (default: the host's standard streams)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfigDir returns ~/.permrun, or .permrun when the home directory
// cannot be determined.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".permrun"
	}
	return filepath.Join(home, ".permrun")
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SystemConfigPath == "" {
		opts.SystemConfigPath = filepath.Join(DefaultConfigDir(), "config.yaml")
	}
	if opts.GrantsPath == "" {
		opts.GrantsPath = filepath.Join(DefaultConfigDir(), "grants.yaml")
	}

	systemCfg, err := system.NewConfigLoader().Load(opts.SystemConfigPath)
	if err != nil {
		return nil, apperrors.NewConfigurationError("system config", opts.SystemConfigPath, err)
	}

	baseline, err := systemCfg.ToEntries()
	if err != nil {
		return nil, apperrors.NewConfigurationError("system config", "baseline capabilities", err)
	}

	// Command-line flags and environment take precedence over the config file
	runtimeCfg := config.FromSystemConfig(systemCfg)
	if opts.SecurityLevel != "" {
		level := system.SecurityConfig{Level: opts.SecurityLevel}
		runtimeCfg.SecurityLevel = string(level.GetSecurityLevel())
	}
	if opts.Runner != "" {
		runtimeCfg.Runner = opts.Runner
	}
	if opts.RunnerVersion != "" {
		runtimeCfg.RunnerVersion = opts.RunnerVersion
	}
	if opts.Timeout > 0 {
		runtimeCfg.Timeout = opts.Timeout
	}
	runtimeCfg.MaxConcurrentLaunches = opts.Parallel
	runtimeCfg.ApplyDefaults()

	grantStore := infraCapabilities.NewFileStore(opts.GrantsPath)
	prompter := infraCapabilities.NewTerminalPrompter(opts.GrantsPath)
	gatekeeper := services.NewCapabilityGatekeeper(grantStore, prompter, runtimeCfg.SecurityLevel, opts.Logger)

	launchService := services.NewLaunchService(gatekeeper, launcher.VersionProbe{}, launcher.Options{
		Runner: runtimeCfg.Runner,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Logger: opts.Logger,
	})

	opts.Logger.Debug("container initialized",
		"config", opts.SystemConfigPath,
		"security_level", runtimeCfg.SecurityLevel,
		"runner", runtimeCfg.Runner)

	return &Container{
		systemCfg:        systemCfg,
		runtimeCfg:       runtimeCfg,
		baseline:         baseline,
		grantStore:       grantStore,
		gatekeeper:       gatekeeper,
		launchService:    launchService,
		profileLoader:    config.NewProfileLoader(),
		formatterFactory: output.NewFormatterFactory(),
		logger:           opts.Logger,
	}, nil
}

// LaunchService returns the launch use case.
func (c *Container) LaunchService() *services.LaunchService {
	return c.launchService
}

// Gatekeeper returns the capability reviewer.
func (c *Container) Gatekeeper() ports.CapabilityReviewer {
	return c.gatekeeper
}

// GrantStore returns the persisted approval store.
func (c *Container) GrantStore() *infraCapabilities.FileStore {
	return c.grantStore
}

// ProfileLoader returns the profile loader port.
func (c *Container) ProfileLoader() ports.ProfileLoader {
	return c.profileLoader
}

// FormatterFactory returns the output formatter factory.
func (c *Container) FormatterFactory() ports.OutputFormatterFactory {
	return c.formatterFactory
}

// BaselineEntries returns the capability entries every launch receives.
func (c *Container) BaselineEntries() []capabilities.Entry {
	return c.baseline
}

// SystemConfig returns the system configuration.
func (c *Container) SystemConfig() *system.Config {
	return c.systemCfg
}

// RuntimeConfig returns the effective runtime configuration.
func (c *Container) RuntimeConfig() *config.RuntimeConfig {
	return c.runtimeCfg
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}
