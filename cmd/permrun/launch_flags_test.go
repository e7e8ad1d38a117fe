package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/permrun/internal/application/dto"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/infrastructure/config"
)

type fakeProfileLoader struct {
	profile *dto.LaunchRequest
	err     error
	paths   []string
}

func (f *fakeProfileLoader) LoadProfile(path string) (*dto.LaunchRequest, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.profile
	return &copied, nil
}

func fallbackConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{Runner: "deno", RunnerVersion: ">= 1.0", Timeout: time.Minute}
}

func flagsWithGrants(t *testing.T, args ...string) *launchFlags {
	t.Helper()
	g, _ := parseGrantFlags(t, args...)
	return &launchFlags{grants: *g}
}

func TestLaunchFlags_Requests_Targets(t *testing.T) {
	f := flagsWithGrants(t, "--allow-env=FLAG")
	f.dir = "/work"

	baseline := []capabilities.Entry{capabilities.Env("BASE")}
	reqs, err := f.requests(&fakeProfileLoader{}, launchOverrides{}, fallbackConfig(), baseline, []string{"a.ts", "b.ts"})
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "a.ts", reqs[0].Target)
	assert.Equal(t, "b.ts", reqs[1].Target)
	for _, req := range reqs {
		assert.Equal(t, "deno", req.Runner)
		assert.Equal(t, ">= 1.0", req.RunnerVersion)
		assert.Equal(t, time.Minute, req.Options.Timeout)
		assert.Equal(t, "/work", req.Dir)
		assert.Equal(t, []string{"--allow-env=BASE,FLAG"}, capabilities.Normalize(req.Entries...).Flags())
	}
}

func TestLaunchFlags_Requests_NoTarget(t *testing.T) {
	f := &launchFlags{}
	_, err := f.requests(&fakeProfileLoader{}, launchOverrides{}, fallbackConfig(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a target or --profile is required")
}

func TestLaunchFlags_Requests_Profile(t *testing.T) {
	loader := &fakeProfileLoader{profile: &dto.LaunchRequest{
		Target:  "/srv/app/main.ts",
		Runner:  "deno-canary",
		Dir:     "/srv/app",
		Entries: []capabilities.Entry{capabilities.Env("PROFILE"), capabilities.HRTime()},
		Options: dto.LaunchOptions{Timeout: 5 * time.Second},
	}}

	f := flagsWithGrants(t, "--allow-env=FLAG")
	f.profilePath = "permrun.yaml"
	f.trust = true

	reqs, err := f.requests(loader, launchOverrides{}, fallbackConfig(), []capabilities.Entry{capabilities.Env("BASE")}, nil)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, []string{"permrun.yaml"}, loader.paths)
	assert.Equal(t, "/srv/app/main.ts", req.Target)
	assert.Equal(t, "deno-canary", req.Runner)
	assert.Equal(t, ">= 1.0", req.RunnerVersion)
	assert.Equal(t, "/srv/app", req.Dir)
	assert.Equal(t, 5*time.Second, req.Options.Timeout)
	assert.True(t, req.Options.Trust)
	assert.Equal(t, []string{"--allow-env=BASE,PROFILE,FLAG", "--allow-hrtime"}, capabilities.Normalize(req.Entries...).Flags())
}

func TestLaunchFlags_Requests_OverridesBeatProfile(t *testing.T) {
	loader := &fakeProfileLoader{profile: &dto.LaunchRequest{
		Target:        "main.ts",
		Runner:        "deno-canary",
		RunnerVersion: "^1.40",
		Options:       dto.LaunchOptions{Timeout: 5 * time.Second},
	}}

	f := &launchFlags{profilePath: "permrun.yaml"}
	overrides := launchOverrides{Runner: "/usr/bin/deno", RunnerVersion: ">= 2.0", Timeout: time.Second}

	reqs, err := f.requests(loader, overrides, fallbackConfig(), nil, []string{"other.ts"})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	assert.Equal(t, "other.ts", reqs[0].Target)
	assert.Equal(t, "/usr/bin/deno", reqs[0].Runner)
	assert.Equal(t, ">= 2.0", reqs[0].RunnerVersion)
	assert.Equal(t, time.Second, reqs[0].Options.Timeout)
}

func TestLaunchFlags_Requests_ProfileError(t *testing.T) {
	loader := &fakeProfileLoader{err: errors.New("boom")}
	f := &launchFlags{profilePath: "permrun.yaml"}

	_, err := f.requests(loader, launchOverrides{}, fallbackConfig(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load profile")
}
