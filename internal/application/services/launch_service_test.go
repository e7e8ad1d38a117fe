package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reglet-dev/permrun/internal/application/dto"
	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReviewer struct {
	mu    sync.Mutex
	err   error
	seen  [][]string
	trust []bool
}

func (r *recordingReviewer) Review(_ context.Context, set capabilities.Set, trust bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, set.Flags())
	r.trust = append(r.trust, trust)
	return r.err
}

type fakeVersions struct {
	err         error
	constraints []string
}

func (f *fakeVersions) CheckVersion(_ context.Context, _, constraint string) error {
	f.constraints = append(f.constraints, constraint)
	return f.err
}

// shRunner writes a launch runner that runs its last argument with /bin/sh.
func shRunner(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake launch runner requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fake-runner")
	script := "#!/bin/sh\nfor last; do :; done\nexec /bin/sh \"$last\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestService(t *testing.T, reviewer *recordingReviewer, versions *fakeVersions) *LaunchService {
	t.Helper()
	return NewLaunchService(reviewer, versions, launcher.Options{
		Runner: shRunner(t),
		Stdin:  strings.NewReader(""),
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
}

func TestLaunchService_Plan(t *testing.T) {
	t.Parallel()

	svc := NewLaunchService(&recordingReviewer{}, &fakeVersions{}, launcher.Options{})
	target := script(t, "exit 0\n")

	plan, runner, err := svc.Plan(dto.LaunchRequest{
		Target:  target,
		Runner:  "/opt/deno",
		Entries: []capabilities.Entry{capabilities.Env("A"), capabilities.Run(), capabilities.Env("B")},
	})
	require.NoError(t, err)

	assert.Equal(t, "/opt/deno", plan.Runner)
	assert.Equal(t, runner.Target(), plan.Target)
	assert.Equal(t, runner.ID(), plan.RunID)
	assert.Equal(t, []string{"/opt/deno", "run", "--allow-env=A,B", "--allow-run", runner.Target()}, plan.Command)

	require.Len(t, plan.Capabilities, 2)
	assert.Equal(t, "env", plan.Capabilities[0].Kind)
	assert.Equal(t, []string{"A", "B"}, plan.Capabilities[0].Params)
	assert.True(t, plan.Capabilities[1].Broad)
	assert.Equal(t, "high", plan.Capabilities[1].Risk)
}

func TestLaunchService_Plan_DefaultRunner(t *testing.T) {
	t.Parallel()

	svc := NewLaunchService(&recordingReviewer{}, &fakeVersions{}, launcher.Options{})
	plan, _, err := svc.Plan(dto.LaunchRequest{Target: script(t, "exit 0\n")})
	require.NoError(t, err)
	assert.Equal(t, launcher.DefaultRunner, plan.Runner)
}

func TestLaunchService_Launch(t *testing.T) {
	t.Parallel()

	reviewer := &recordingReviewer{}
	versions := &fakeVersions{}
	svc := newTestService(t, reviewer, versions)

	result, err := svc.Launch(context.Background(), dto.LaunchRequest{
		Target:        script(t, "exit 0\n"),
		Entries:       []capabilities.Entry{capabilities.HRTime()},
		RunnerVersion: ">= 1.0",
		Options:       dto.LaunchOptions{Trust: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.RunID.IsZero())

	assert.Equal(t, [][]string{{"--allow-hrtime"}}, reviewer.seen)
	assert.Equal(t, []bool{true}, reviewer.trust)
	assert.Equal(t, []string{">= 1.0"}, versions.constraints)
}

func TestLaunchService_Launch_NonZeroExit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &recordingReviewer{}, &fakeVersions{})

	result, err := svc.Launch(context.Background(), dto.LaunchRequest{Target: script(t, "exit 9\n")})
	var exitErr *launcher.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 9, exitErr.Code)
	require.NotNil(t, result)
	assert.Equal(t, 9, result.ExitCode)
}

func TestLaunchService_Launch_Refused(t *testing.T) {
	t.Parallel()

	refusal := apperrors.NewCapabilityError("denied", capabilities.All())
	svc := newTestService(t, &recordingReviewer{err: refusal}, &fakeVersions{})

	marker := filepath.Join(t.TempDir(), "ran")
	result, err := svc.Launch(context.Background(), dto.LaunchRequest{
		Target:  script(t, "touch '"+marker+"'\n"),
		Entries: []capabilities.Entry{capabilities.All()},
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, refusal)
	assert.NoFileExists(t, marker)
}

func TestLaunchService_Launch_VersionMismatch(t *testing.T) {
	t.Parallel()

	reviewer := &recordingReviewer{}
	svc := newTestService(t, reviewer, &fakeVersions{err: errors.New("too old")})

	_, err := svc.Launch(context.Background(), dto.LaunchRequest{
		Target:        script(t, "exit 0\n"),
		RunnerVersion: ">= 9",
	})
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "runner", cfgErr.Aspect)
	assert.Empty(t, reviewer.seen)
}

func TestLaunchService_Launch_MissingTarget(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &recordingReviewer{}, &fakeVersions{})

	_, err := svc.Launch(context.Background(), dto.LaunchRequest{Target: filepath.Join(t.TempDir(), "absent.ts")})
	var launchErr *apperrors.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLaunchService_Launch_Timeout(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &recordingReviewer{}, &fakeVersions{})

	start := time.Now()
	result, err := svc.Launch(context.Background(), dto.LaunchRequest{
		Target:  script(t, "exec sleep 30\n"),
		Options: dto.LaunchOptions{Timeout: 200 * time.Millisecond},
	})

	var launchErr *apperrors.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEqual(t, 0, result.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLaunchService_LaunchAll(t *testing.T) {
	t.Parallel()

	reviewer := &recordingReviewer{}
	svc := newTestService(t, reviewer, &fakeVersions{})

	reqs := []dto.LaunchRequest{
		{Target: script(t, "exit 0\n")},
		{Target: script(t, "exit 4\n")},
		{Target: script(t, "exit 5\n")},
	}

	results, err := svc.LaunchAll(context.Background(), reqs, 2)
	require.Len(t, results, 3)
	assert.Len(t, reviewer.seen, 3)

	// The first non-zero exit in request order is reported
	var exitErr *launcher.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 4, exitErr.Code)

	assert.Equal(t, 0, results[0].ExitCode)
	assert.Equal(t, 4, results[1].ExitCode)
	assert.Equal(t, 5, results[2].ExitCode)
}

func TestLaunchService_LaunchAll_RefusalStartsNothing(t *testing.T) {
	t.Parallel()

	refusal := apperrors.NewCapabilityError("denied")
	svc := newTestService(t, &recordingReviewer{err: refusal}, &fakeVersions{})

	marker := filepath.Join(t.TempDir(), "ran")
	reqs := []dto.LaunchRequest{
		{Target: script(t, "touch '"+marker+"'\n")},
		{Target: script(t, "exit 0\n")},
	}

	results, err := svc.LaunchAll(context.Background(), reqs, 0)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, refusal)
	assert.NoFileExists(t, marker)
}

func TestLaunchService_LaunchAll_SharedOutput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	svc := NewLaunchService(&recordingReviewer{}, &fakeVersions{}, launcher.Options{
		Runner: shRunner(t),
		Stdin:  strings.NewReader("must not be read concurrently\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	var reqs []dto.LaunchRequest
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		reqs = append(reqs, dto.LaunchRequest{
			Target: script(t, "read line; echo \"[$line]"+name+"\"; echo "+name+" >&2\n"),
		})
	}

	results, err := svc.LaunchAll(context.Background(), reqs, len(reqs))
	require.NoError(t, err)
	require.Len(t, results, 4)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.ElementsMatch(t, []string{"[]alpha", "[]beta", "[]gamma", "[]delta"}, lines)
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		assert.Contains(t, stderr.String(), name)
	}
}

func TestSharedOutputs(t *testing.T) {
	var buf bytes.Buffer
	stdout, stderr := sharedOutputs(&buf, &buf)

	_, isLocked := stdout.(*lockedWriter)
	assert.True(t, isLocked)
	assert.Same(t, stdout.(*lockedWriter).mu, stderr.(*lockedWriter).mu)

	fileOut, nilErr := sharedOutputs(os.Stdout, nil)
	assert.Same(t, os.Stdout, fileOut)
	assert.Nil(t, nilErr)
}
