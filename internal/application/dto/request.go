// Package dto contains data transfer objects for application layer use cases.
package dto

import (
	"time"

	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// LaunchRequest encapsulates all inputs needed to launch one target program.
type LaunchRequest struct {
	// Target is the program handed to the launch runner.
	Target string

	// Entries is the capability request, normalized before launch.
	Entries []capabilities.Entry

	// Runner overrides the launch runner binary.
	Runner string

	// RunnerVersion is an optional semver constraint the runner must satisfy.
	RunnerVersion string

	// Dir is the child's working directory.
	Dir string

	Options LaunchOptions
}

// LaunchOptions controls policy and timing for a launch.
type LaunchOptions struct {
	// Trust grants broad capabilities without review.
	Trust bool

	// Timeout kills the child when it runs longer (0 = no limit).
	Timeout time.Duration
}
