// Package lifecycle defines the state machine of a launched child process.
package lifecycle

import "errors"

// Usage errors. They are returned synchronously and never retried.
var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("process cannot be started again")
	// ErrNotStarted is returned when Kill is called before Start.
	ErrNotStarted = errors.New("process cannot be killed before it is started")
	// ErrFinished is returned when Kill is called after the process finished or was killed.
	ErrFinished = errors.New("process has already finished")
)

// State is the lifecycle state of a child process.
//
//	NotStarted -> Running -> Finished
//
// Both transitions are irreversible.
type State int

const (
	// NotStarted is the initial state.
	NotStarted State = iota
	// Running means the child was spawned and has not been observed to exit.
	Running
	// Finished means the child exited or was killed.
	Finished
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// CanStart returns nil if Start is valid in this state.
func (s State) CanStart() error {
	if s != NotStarted {
		return ErrAlreadyStarted
	}
	return nil
}

// CanKill returns nil if Kill is valid in this state.
func (s State) CanKill() error {
	switch s {
	case Running:
		return nil
	case NotStarted:
		return ErrNotStarted
	default:
		return ErrFinished
	}
}
