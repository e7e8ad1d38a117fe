package launcher

import (
	"context"
	"fmt"
)

// ExitError reports a child that exited with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// Completion is the single-resolution result of a started child.
type Completion struct {
	done chan struct{}
	code int
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolve must be called exactly once.
func (c *Completion) resolve(code int, err error) {
	c.code = code
	c.err = err
	close(c.done)
}

// Done is closed once the child has been reaped.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the child exits. It returns (0, nil) on a zero exit
// status and (code, *ExitError) otherwise.
func (c *Completion) Wait() (int, error) {
	<-c.done
	return c.code, c.err
}

// WaitContext is like Wait but gives up when ctx is done. Giving up does not
// affect the child.
func (c *Completion) WaitContext(ctx context.Context) (int, error) {
	select {
	case <-c.done:
		return c.code, c.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
