package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/reglet-dev/permrun/internal/application/dto"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const ruleWidth = 80

// TableFormatter formats launch plans as a human-readable table.
type TableFormatter struct {
	writer      io.Writer
	EnableColor bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

// colorize returns the string wrapped in ANSI color codes if enabled.
func (f *TableFormatter) colorize(text, code string) string {
	if !f.EnableColor {
		return text
	}
	return code + text + colorReset
}

func (f *TableFormatter) rule() string {
	return f.colorize(strings.Repeat("─", ruleWidth), colorGray)
}

// Format writes the launch plan as a table.
//
//nolint:errcheck // Table formatting errors are non-critical (best-effort terminal output)
func (f *TableFormatter) Format(plan *dto.LaunchPlan) error {
	fmt.Fprintln(f.writer, f.rule())
	fmt.Fprintf(f.writer, "Run:     %s\n", plan.RunID.Short())
	fmt.Fprintf(f.writer, "Target:  %s\n", f.colorize(plan.Target, colorBold))
	fmt.Fprintf(f.writer, "Runner:  %s\n", plan.Runner)
	fmt.Fprintf(f.writer, "Command: %s\n", strings.Join(plan.Command, " "))
	fmt.Fprintln(f.writer)

	if len(plan.Capabilities) == 0 {
		fmt.Fprintln(f.writer, "No capabilities requested.")
		fmt.Fprintln(f.writer, f.rule())
		return nil
	}

	fmt.Fprintln(f.writer, f.colorize("Capabilities:", colorBold))
	fmt.Fprintln(f.writer, f.rule())
	for _, c := range plan.Capabilities {
		f.formatCapability(c)
	}
	fmt.Fprintln(f.writer, f.rule())

	return nil
}

// formatCapability formats a single capability view.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) formatCapability(c dto.CapabilityView) {
	symbol, color := riskInfo(c.Risk)
	fmt.Fprintf(f.writer, "%s %-7s %s\n", f.colorize(symbol, color), c.Kind, f.colorize(c.Flag, colorCyan))

	risk := strings.ToUpper(c.Risk)
	if c.Broad {
		risk += " (broad)"
	}
	fmt.Fprintf(f.writer, "  Risk: %s\n", f.colorize(risk, color))
	if c.Description != "" {
		fmt.Fprintf(f.writer, "  %s\n", c.Description)
	}
}

// FormatResults writes a summary of finished launches.
//
//nolint:errcheck // Best-effort terminal output
func (f *TableFormatter) FormatResults(results []*dto.LaunchResult) {
	fmt.Fprintln(f.writer, f.colorize("Summary:", colorBold))
	fmt.Fprintln(f.writer, f.rule())

	failed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		symbol, color := "✓", colorGreen
		if r.ExitCode != 0 || r.Err != nil {
			symbol, color = "✗", colorRed
			failed++
		}
		fmt.Fprintf(f.writer, "%s %s %s (exit %d)\n",
			f.colorize(symbol, color), r.RunID.Short(), r.Target, r.ExitCode)
	}

	fmt.Fprintln(f.writer, f.rule())
	fmt.Fprintf(f.writer, "%d launched, %d failed\n", len(results), failed)
}

// riskInfo returns a symbol and color for a risk level name.
func riskInfo(risk string) (string, string) {
	switch risk {
	case "low":
		return "●", colorGreen
	case "medium":
		return "▲", colorYellow
	case "high":
		return "⚠", colorRed
	default:
		return "?", colorReset
	}
}
