package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// versionPattern finds the first dotted version in `<runner> --version` output,
// e.g. "deno 1.46.3 (stable, release, x86_64-unknown-linux-gnu)".
var versionPattern = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.-]+)?)\b`)

// ParseVersionOutput extracts the runner version from its --version output.
func ParseVersionOutput(output string) (*semver.Version, error) {
	match := versionPattern.FindStringSubmatch(output)
	if match == nil {
		return nil, fmt.Errorf("no version found in runner output %q", output)
	}
	v, err := semver.NewVersion(match[1])
	if err != nil {
		return nil, fmt.Errorf("invalid runner version %q: %w", match[1], err)
	}
	return v, nil
}

// ProbeVersion runs `<runner> --version` and parses the result.
func ProbeVersion(ctx context.Context, runner string) (*semver.Version, error) {
	if runner == "" {
		runner = DefaultRunner
	}

	var stdout bytes.Buffer
	//nolint:gosec // G204: runner comes from operator configuration
	cmd := exec.CommandContext(ctx, runner, "--version")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to query %s version: %w", runner, err)
	}
	return ParseVersionOutput(stdout.String())
}

// CheckVersion verifies that runner satisfies constraint (e.g. ">= 1.40").
// An empty constraint always passes without probing.
func CheckVersion(ctx context.Context, runner, constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid runner version constraint %q: %w", constraint, err)
	}

	v, err := ProbeVersion(ctx, runner)
	if err != nil {
		return err
	}

	if ok, errs := c.Validate(v); !ok {
		return fmt.Errorf("runner %s version %s does not satisfy %q: %v", runner, v, constraint, errs)
	}
	return nil
}

// VersionProbe checks runner versions by executing the runner.
type VersionProbe struct{}

// CheckVersion implements ports.VersionChecker.
func (VersionProbe) CheckVersion(ctx context.Context, runner, constraint string) error {
	return CheckVersion(ctx, runner, constraint)
}
