package output

import (
	"io"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/permrun/internal/application/dto"
)

// YAMLFormatter formats launch plans as YAML.
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format writes the launch plan as YAML.
func (f *YAMLFormatter) Format(plan *dto.LaunchPlan) error {
	encoder := yaml.NewEncoder(f.writer, yaml.Indent(2), yaml.IndentSequence(true))

	if err := encoder.Encode(plan); err != nil {
		return err
	}

	return encoder.Close()
}
