// Package services contains application services that orchestrate use cases.
package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/reglet-dev/permrun/internal/application/dto"
	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/reglet-dev/permrun/internal/application/ports"
	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
)

// LaunchService coordinates one or more launches: it builds the runner,
// checks the runner version, reviews capabilities and waits for the child.
type LaunchService struct {
	reviewer ports.CapabilityReviewer
	versions ports.VersionChecker
	base     launcher.Options
	logger   *slog.Logger
}

// NewLaunchService creates a launch service. base supplies the default
// runner, stdio and logger for every launch.
func NewLaunchService(reviewer ports.CapabilityReviewer, versions ports.VersionChecker, base launcher.Options) *LaunchService {
	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base.Logger = logger
	return &LaunchService{
		reviewer: reviewer,
		versions: versions,
		base:     base,
		logger:   logger,
	}
}

// Plan builds the runner for req without starting it.
func (s *LaunchService) Plan(req dto.LaunchRequest) (*dto.LaunchPlan, *launcher.Runner, error) {
	return s.plan(req, s.base)
}

func (s *LaunchService) plan(req dto.LaunchRequest, opts launcher.Options) (*dto.LaunchPlan, *launcher.Runner, error) {
	if req.Runner != "" {
		opts.Runner = req.Runner
	}
	if req.Dir != "" {
		opts.Dir = req.Dir
	}

	runner, err := launcher.New(req.Target, opts, req.Entries...)
	if err != nil {
		return nil, nil, err
	}

	command := runner.Command()
	return &dto.LaunchPlan{
		RunID:        runner.ID(),
		Runner:       command[0],
		Target:       runner.Target(),
		Command:      command,
		Capabilities: dto.NewCapabilityViews(runner.Capabilities()),
	}, runner, nil
}

// Launch runs one request to completion. A non-zero exit is reported as a
// *launcher.ExitError together with the result; every other failure is a
// *apperrors.LaunchError, *apperrors.CapabilityError or
// *apperrors.ConfigurationError.
func (s *LaunchService) Launch(ctx context.Context, req dto.LaunchRequest) (*dto.LaunchResult, error) {
	runner, err := s.prepare(ctx, req, s.base)
	if err != nil {
		return nil, err
	}
	result := s.execute(ctx, runner, req)
	return result, result.Err
}

// LaunchAll reviews every request up front, then runs them with at most
// parallel children at a time (parallel < 1 means unlimited). Results keep
// request order. A launch failure cancels the remaining launches; otherwise
// the first non-zero exit in request order is returned.
//
// Children of a batch read an empty stdin and share serialized stdout and
// stderr writers.
func (s *LaunchService) LaunchAll(ctx context.Context, reqs []dto.LaunchRequest, parallel int) ([]*dto.LaunchResult, error) {
	stdout, stderr := sharedOutputs(s.base.Stdout, s.base.Stderr)

	// Reviews may prompt, so they run one at a time before anything starts
	runners := make([]*launcher.Runner, len(reqs))
	for i, req := range reqs {
		opts := s.base
		opts.Stdin = strings.NewReader("")
		opts.Stdout = stdout
		opts.Stderr = stderr

		runner, err := s.prepare(ctx, req, opts)
		if err != nil {
			return nil, err
		}
		runners[i] = runner
	}

	results := make([]*dto.LaunchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &dto.LaunchResult{
					RunID:    runners[i].ID(),
					Target:   runners[i].Target(),
					ExitCode: -1,
					Err:      apperrors.NewLaunchError(runners[i].ID().Short(), runners[i].Target(), err),
				}
				return nil
			}

			result := s.execute(gctx, runners[i], reqs[i])
			results[i] = result

			var exitErr *launcher.ExitError
			if result.Err != nil && !errors.As(result.Err, &exitErr) {
				return result.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	for _, result := range results {
		if result.Err != nil {
			return results, result.Err
		}
	}
	return results, nil
}

// prepare builds the runner, gates the runner version and reviews capabilities.
func (s *LaunchService) prepare(ctx context.Context, req dto.LaunchRequest, opts launcher.Options) (*launcher.Runner, error) {
	plan, runner, err := s.plan(req, opts)
	if err != nil {
		return nil, apperrors.NewLaunchError("-", req.Target, err)
	}

	if req.RunnerVersion != "" {
		if err := s.versions.CheckVersion(ctx, plan.Runner, req.RunnerVersion); err != nil {
			return nil, apperrors.NewConfigurationError("runner", "version check failed", err)
		}
	}

	if err := s.reviewer.Review(ctx, runner.Capabilities(), req.Options.Trust); err != nil {
		return nil, err
	}

	s.logger.Debug("launch prepared",
		"run_id", plan.RunID.Short(),
		"runner", plan.Runner,
		"target", plan.Target,
		"flags", runner.Capabilities().Flags())
	return runner, nil
}

// execute starts runner and waits, applying the request timeout.
func (s *LaunchService) execute(ctx context.Context, runner *launcher.Runner, req dto.LaunchRequest) *dto.LaunchResult {
	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		defer cancel()
	}

	code, err := runner.Await(ctx)
	result := &dto.LaunchResult{
		RunID:    runner.ID(),
		Target:   runner.Target(),
		ExitCode: code,
	}

	var exitErr *launcher.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		s.logger.Info("process failed", "run_id", runner.ID().Short(), "exit_code", code)
		result.Err = err
	default:
		s.logger.Error("launch failed", "run_id", runner.ID().Short(), "error", err)
		result.Err = apperrors.NewLaunchError(runner.ID().Short(), runner.Target(), err)
	}
	return result
}

// lockedWriter serializes writes from the output copiers of several children.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// sharedOutputs wraps stdout and stderr for concurrent children. Files are
// handed to children directly and need no lock; nil means the host stream.
// Both wrappers share one lock since they may wrap the same writer.
func sharedOutputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	mu := &sync.Mutex{}
	wrap := func(w io.Writer) io.Writer {
		if w == nil {
			return nil
		}
		if _, ok := w.(*os.File); ok {
			return w
		}
		return &lockedWriter{mu: mu, w: w}
	}
	return wrap(stdout), wrap(stderr)
}
