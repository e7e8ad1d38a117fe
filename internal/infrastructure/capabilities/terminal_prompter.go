package capabilities

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

const (
	answerOnce   = "once"
	answerAlways = "always"
	answerDeny   = "deny"
)

// TerminalPrompter provides interactive terminal prompting for capability grants.
type TerminalPrompter struct {
	grantsPath string
}

// NewTerminalPrompter creates a new TerminalPrompter. grantsPath is shown in
// non-interactive error messages.
func NewTerminalPrompter(grantsPath string) *TerminalPrompter {
	return &TerminalPrompter{grantsPath: grantsPath}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// PromptForCapability asks the operator whether to grant a broad capability.
func (p *TerminalPrompter) PromptForCapability(d capabilities.Descriptor) (granted bool, always bool, err error) {
	answer := answerDeny
	err = huh.NewSelect[string]().
		Title(fmt.Sprintf("Program requests %s (%s risk)", d.Flag(), d.RiskLevel())).
		Description(d.RiskDescription()).
		Options(
			huh.NewOption("Deny", answerDeny),
			huh.NewOption("Allow once", answerOnce),
			huh.NewOption("Always allow", answerAlways),
		).
		Value(&answer).
		Run()
	if err != nil {
		return false, false, fmt.Errorf("capability prompt failed: %w", err)
	}

	switch answer {
	case answerOnce:
		return true, false, nil
	case answerAlways:
		return true, true, nil
	default:
		return false, false, nil
	}
}

// describeCapability returns a one-line, human-readable description of a descriptor.
func (p *TerminalPrompter) describeCapability(d capabilities.Descriptor) string {
	params := strings.Join(d.Params(), ", ")
	switch d.Kind() {
	case capabilities.KindAll:
		return "All permissions (no sandbox)"
	case capabilities.KindFFI:
		return "Load native libraries (FFI)"
	case capabilities.KindHRTime:
		return "High-resolution time"
	case capabilities.KindNet:
		if d.Unrestricted() {
			return "Network access to any host"
		}
		return "Network access to " + params
	case capabilities.KindRead:
		if d.Unrestricted() {
			return "Read any file"
		}
		return "Read files: " + params
	case capabilities.KindWrite:
		if d.Unrestricted() {
			return "Write any file"
		}
		return "Write files: " + params
	case capabilities.KindRun:
		if d.Unrestricted() {
			return "Execute any command"
		}
		return "Execute commands: " + params
	case capabilities.KindEnv:
		if d.Unrestricted() {
			return "Read all environment variables"
		}
		return "Read environment variables: " + params
	default:
		return d.Flag()
	}
}

// FormatNonInteractiveError creates a helpful error message for non-interactive mode.
func (p *TerminalPrompter) FormatNonInteractiveError(missing []capabilities.Descriptor) error {
	var msg strings.Builder
	msg.WriteString("Program requests broad permissions (running in non-interactive mode)\n\n")
	msg.WriteString("Requested permissions:\n")

	for _, d := range missing {
		msg.WriteString(fmt.Sprintf("  - %s [%s]\n", p.describeCapability(d), d.Flag()))
	}

	msg.WriteString("\nTo grant these permissions:\n")
	msg.WriteString("  1. Run interactively and approve when prompted\n")
	msg.WriteString("  2. Use --trust flag (grants all requested permissions)\n")
	msg.WriteString(fmt.Sprintf("  3. Add them to the approved list in %s\n", p.grantsPath))

	return fmt.Errorf("%s", msg.String())
}
