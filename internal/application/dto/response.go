package dto

import (
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/domain/values"
)

// LaunchPlan describes what a launch will execute, without executing it.
type LaunchPlan struct {
	RunID        values.RunID     `json:"run_id" yaml:"run_id"`
	Runner       string           `json:"runner" yaml:"runner"`
	Target       string           `json:"target" yaml:"target"`
	Command      []string         `json:"command" yaml:"command"`
	Capabilities []CapabilityView `json:"capabilities" yaml:"capabilities"`
}

// CapabilityView is the presentation form of one normalized descriptor.
type CapabilityView struct {
	Kind        string   `json:"kind" yaml:"kind"`
	Flag        string   `json:"flag" yaml:"flag"`
	Params      []string `json:"params,omitempty" yaml:"params,omitempty"`
	Risk        string   `json:"risk" yaml:"risk"`
	Broad       bool     `json:"broad" yaml:"broad"`
	Description string   `json:"description" yaml:"description"`
}

// NewCapabilityViews converts a normalized set into views, in set order.
func NewCapabilityViews(set capabilities.Set) []CapabilityView {
	views := make([]CapabilityView, 0, set.Len())
	for _, d := range set.Descriptors() {
		views = append(views, CapabilityView{
			Kind:        d.Kind().String(),
			Flag:        d.Flag(),
			Params:      d.Params(),
			Risk:        d.RiskLevel().String(),
			Broad:       d.IsBroad(),
			Description: d.RiskDescription(),
		})
	}
	return views
}

// LaunchResult is the outcome of one finished launch.
type LaunchResult struct {
	RunID    values.RunID `json:"run_id" yaml:"run_id"`
	Target   string       `json:"target" yaml:"target"`
	ExitCode int          `json:"exit_code" yaml:"exit_code"`
	Err      error        `json:"-" yaml:"-"`
}
