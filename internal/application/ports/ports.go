// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"io"

	"github.com/reglet-dev/permrun/internal/application/dto"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// GrantStore persists descriptors the operator approved permanently.
type GrantStore interface {
	Load() ([]capabilities.Descriptor, error)
	Save(approved []capabilities.Descriptor) error
	ConfigPath() string
}

// CapabilityPrompter asks the operator whether to grant a broad capability.
type CapabilityPrompter interface {
	IsInteractive() bool
	PromptForCapability(d capabilities.Descriptor) (granted bool, always bool, err error)
	FormatNonInteractiveError(missing []capabilities.Descriptor) error
}

// CapabilityReviewer decides whether a normalized set may be launched.
type CapabilityReviewer interface {
	Review(ctx context.Context, set capabilities.Set, trust bool) error
}

// VersionChecker verifies the launch runner satisfies a semver constraint.
type VersionChecker interface {
	CheckVersion(ctx context.Context, runner, constraint string) error
}

// ProfileLoader loads launch profiles from storage.
type ProfileLoader interface {
	LoadProfile(path string) (*dto.LaunchRequest, error)
}

// OutputFormatter formats launch plans.
type OutputFormatter interface {
	Format(plan *dto.LaunchPlan) error
}

// FormatterOptions configures output formatters.
type FormatterOptions struct {
	// Indent pretty-prints JSON output.
	Indent bool

	// Color enables ANSI colors in table output.
	Color bool
}

// OutputFormatterFactory creates formatters by name.
type OutputFormatterFactory interface {
	Create(format string, writer io.Writer, options FormatterOptions) (OutputFormatter, error)
	SupportedFormats() []string
}
