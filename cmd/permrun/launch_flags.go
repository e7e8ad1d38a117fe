package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/permrun/internal/application/dto"
	"github.com/reglet-dev/permrun/internal/application/ports"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/infrastructure/config"
)

// launchFlags are shared by run and plan.
type launchFlags struct {
	grants      grantFlags
	profilePath string
	dir         string
	trust       bool
}

// launchOverrides are values set explicitly by flag or PERMRUN_* variable.
type launchOverrides struct {
	Runner        string
	RunnerVersion string
	Timeout       time.Duration
}

func overridesFromViper() launchOverrides {
	return launchOverrides{
		Runner:        viper.GetString("runner"),
		RunnerVersion: viper.GetString("runner-version"),
		Timeout:       viper.GetDuration("timeout"),
	}
}

func (f *launchFlags) register(cmd *cobra.Command) {
	f.grants.register(cmd)
	cmd.Flags().StringVarP(&f.profilePath, "profile", "p", "", "launch profile (YAML) with target, runner and capabilities")
	cmd.Flags().StringVar(&f.dir, "dir", "", "working directory of the launched program")
	cmd.Flags().BoolVar(&f.trust, "trust", false, "grant broad capabilities without review (use with caution)")
}

// requests builds one launch request per target. With a profile, targets
// given as arguments replace the profile's target. Settings resolve as
// override > profile > config file; capabilities accumulate as
// baseline, then profile, then flags.
func (f *launchFlags) requests(
	loader ports.ProfileLoader,
	overrides launchOverrides,
	fallback *config.RuntimeConfig,
	baseline []capabilities.Entry,
	targets []string,
) ([]dto.LaunchRequest, error) {
	flagEntries, err := f.grants.entries()
	if err != nil {
		return nil, err
	}

	base := dto.LaunchRequest{}
	if f.profilePath != "" {
		profile, err := loader.LoadProfile(f.profilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		base = *profile
	} else if len(targets) == 0 {
		return nil, fmt.Errorf("a target or --profile is required")
	}

	base.Runner = firstNonEmpty(overrides.Runner, base.Runner, fallback.Runner)
	base.RunnerVersion = firstNonEmpty(overrides.RunnerVersion, base.RunnerVersion, fallback.RunnerVersion)
	switch {
	case overrides.Timeout > 0:
		base.Options.Timeout = overrides.Timeout
	case base.Options.Timeout == 0:
		base.Options.Timeout = fallback.Timeout
	}
	if f.dir != "" {
		base.Dir = f.dir
	}
	base.Options.Trust = f.trust

	entries := make([]capabilities.Entry, 0, len(baseline)+len(base.Entries)+len(flagEntries))
	entries = append(entries, baseline...)
	entries = append(entries, base.Entries...)
	entries = append(entries, flagEntries...)
	base.Entries = entries

	if len(targets) == 0 {
		return []dto.LaunchRequest{base}, nil
	}

	reqs := make([]dto.LaunchRequest, len(targets))
	for i, target := range targets {
		reqs[i] = base
		reqs[i].Target = target
	}
	return reqs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
