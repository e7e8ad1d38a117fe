package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/domain/lifecycle"
)

// Run launches target, waits for it and returns its exit code.
// When ctx is done first the child is killed with os.Kill and Run returns the
// reported exit code together with the context error.
func Run(ctx context.Context, target string, opts Options, entries ...capabilities.Entry) (int, error) {
	r, err := New(target, opts, entries...)
	if err != nil {
		return -1, err
	}
	return r.Await(ctx)
}

// Await starts the Runner and waits for the child, killing it when ctx is
// done. It is the timeout race: completion against ctx.Done().
func (r *Runner) Await(ctx context.Context) (int, error) {
	done, err := r.Start()
	if err != nil {
		return -1, err
	}

	select {
	case <-done.Done():
		return done.Wait()
	case <-ctx.Done():
	}
	return r.killAndWait(ctx, done)
}

// killAndWait kills the child after ctx ended and collects its status. A
// child that already exited keeps its own result.
func (r *Runner) killAndWait(ctx context.Context, done *Completion) (int, error) {
	killErr := r.Kill(os.Kill)
	if killErr != nil && !errors.Is(killErr, lifecycle.ErrFinished) {
		return -1, killErr
	}

	code, waitErr := done.Wait()
	if killErr != nil {
		// The child exited on its own before the kill landed
		return code, waitErr
	}
	var exitErr *ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return code, errors.Join(ctx.Err(), waitErr)
	}
	return code, fmt.Errorf("process killed: %w", ctx.Err())
}
