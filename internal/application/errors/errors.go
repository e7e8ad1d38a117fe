// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"
	"strings"

	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// ValidationError indicates profile or request validation failed.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// CapabilityError indicates a requested capability was refused.
type CapabilityError struct {
	Reason  string
	Refused []capabilities.Descriptor
}

func (e *CapabilityError) Error() string {
	flags := make([]string, len(e.Refused))
	for i, d := range e.Refused {
		flags[i] = d.Flag()
	}
	return fmt.Sprintf("capability error: %s (%s)", e.Reason, strings.Join(flags, " "))
}

// NewCapabilityError creates a new capability error.
func NewCapabilityError(reason string, refused ...capabilities.Descriptor) *CapabilityError {
	return &CapabilityError{
		Reason:  reason,
		Refused: refused,
	}
}

// LaunchError indicates the launch itself failed (not the program's exit status).
type LaunchError struct {
	Cause  error
	RunID  string
	Target string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s of %s failed: %v", e.RunID, e.Target, e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// NewLaunchError creates a new launch error.
func NewLaunchError(runID, target string, cause error) *LaunchError {
	return &LaunchError{
		RunID:  runID,
		Target: target,
		Cause:  cause,
	}
}

// ConfigurationError indicates system config or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}
