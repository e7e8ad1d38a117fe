// Package launcher starts a target program through the external launch runner
// under a normalized capability set and manages the child's lifecycle.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/domain/lifecycle"
	"github.com/reglet-dev/permrun/internal/domain/values"
)

// DefaultRunner is the launch runner binary used when Options.Runner is empty.
const DefaultRunner = "deno"

const (
	// runSubcommand is the runner subcommand that executes a program.
	runSubcommand = "run"

	// ioDrainTimeout bounds how long Wait keeps copying output after the
	// child exits, in case a grandchild still holds the pipes open.
	ioDrainTimeout = 5 * time.Second
)

// Options configure how the child is spawned.
type Options struct {
	// Runner is the launch runner binary (looked up in PATH). Defaults to DefaultRunner.
	Runner string
	// Dir is the child's working directory. Empty means the current directory.
	Dir string
	// Env is the runner's environment. Nil inherits the host environment;
	// the runner still restricts what the program sees via --allow-env.
	Env []string
	// Stdin, Stdout and Stderr default to the host's standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Runner == "" {
		o.Runner = DefaultRunner
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Runner owns exactly one launch of a target program.
//
// A Runner starts NotStarted, moves to Running on Start and to Finished when
// the child exits or is killed. Start and Kill each succeed at most once.
type Runner struct {
	id     values.RunID
	target string
	set    capabilities.Set
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state lifecycle.State
	cmd   *exec.Cmd // valid only while Running
}

// New prepares a launch of target with the given capability request.
// The target is resolved to its canonical absolute path now; it is not
// re-checked at Start.
func New(target string, opts Options, entries ...capabilities.Entry) (*Runner, error) {
	resolved, err := capabilities.CanonicalPath(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %q: %w", target, err)
	}

	opts = opts.withDefaults()
	id := values.NewRunID()

	return &Runner{
		id:     id,
		target: resolved,
		set:    capabilities.Normalize(entries...),
		opts:   opts,
		logger: opts.Logger.With("run_id", id.Short()),
		state:  lifecycle.NotStarted,
	}, nil
}

// ID returns the run's correlation ID.
func (r *Runner) ID() values.RunID {
	return r.id
}

// Target returns the resolved target path.
func (r *Runner) Target() string {
	return r.target
}

// Capabilities returns the normalized capability set.
func (r *Runner) Capabilities() capabilities.Set {
	return r.set
}

// Args returns the runner arguments: run, one flag per capability, target.
func (r *Runner) Args() []string {
	flags := r.set.Flags()
	args := make([]string, 0, len(flags)+2)
	args = append(args, runSubcommand)
	args = append(args, flags...)
	return append(args, r.target)
}

// Command returns the full command line, runner binary first.
func (r *Runner) Command() []string {
	return append([]string{r.opts.Runner}, r.Args()...)
}

// State returns the current lifecycle state.
func (r *Runner) State() lifecycle.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start spawns the child and returns its completion signal. It does not
// block. A second call returns lifecycle.ErrAlreadyStarted and spawns nothing.
// If the spawn itself fails the Runner is Finished and the error is returned.
func (r *Runner) Start() (*Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.CanStart(); err != nil {
		return nil, err
	}

	//nolint:gosec // G204: runner and arguments are assembled from validated capabilities
	cmd := exec.Command(r.opts.Runner, r.Args()...)
	cmd.Dir = r.opts.Dir
	cmd.Env = r.opts.Env
	cmd.Stdin = r.opts.Stdin
	cmd.Stdout = r.opts.Stdout
	cmd.Stderr = r.opts.Stderr
	cmd.WaitDelay = ioDrainTimeout

	if err := cmd.Start(); err != nil {
		r.state = lifecycle.Finished
		r.logger.Error("failed to spawn launch runner", "runner", r.opts.Runner, "error", err)
		return nil, fmt.Errorf("failed to start %s: %w", r.opts.Runner, err)
	}

	r.cmd = cmd
	r.state = lifecycle.Running
	r.logger.Info("process started",
		"runner", r.opts.Runner,
		"target", r.target,
		"flags", r.set.Flags(),
		"pid", cmd.Process.Pid)

	done := newCompletion()
	go r.wait(cmd, done)
	return done, nil
}

// wait reaps the child and resolves the completion exactly once.
func (r *Runner) wait(cmd *exec.Cmd, done *Completion) {
	waitErr := cmd.Wait()

	r.mu.Lock()
	r.state = lifecycle.Finished
	r.cmd = nil
	r.mu.Unlock()

	if cmd.ProcessState == nil {
		r.logger.Error("failed to wait for process", "error", waitErr)
		done.resolve(-1, fmt.Errorf("failed to wait for %s: %w", r.opts.Runner, waitErr))
		return
	}

	code := exitCode(cmd.ProcessState)
	r.logger.Debug("process exited", "exit_code", code, "state", cmd.ProcessState.String())
	if code == 0 {
		done.resolve(0, nil)
		return
	}
	done.resolve(code, &ExitError{Code: code})
}

// Kill sends sig to the running child and moves the Runner to Finished.
// It returns lifecycle.ErrNotStarted before Start and lifecycle.ErrFinished
// once the child has exited or was already killed. Kill does not resolve the
// completion; waiters observe the status the OS reports for the signaled child.
func (r *Runner) Kill(sig os.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.CanKill(); err != nil {
		return err
	}

	if err := r.cmd.Process.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return lifecycle.ErrFinished
		}
		return fmt.Errorf("failed to signal process: %w", err)
	}

	r.logger.Info("process killed", "signal", sig.String())
	r.cmd = nil
	r.state = lifecycle.Finished
	return nil
}
