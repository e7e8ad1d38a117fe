// Package capabilities defines the capability descriptors handed to the launch
// runner and the rules for merging them into a minimal set.
package capabilities

import (
	"path/filepath"
	"strings"
)

// Security risk assessment constants - domain knowledge about dangerous grants
var (
	// Filesystem roots that grant excessive access
	broadFilesystemPaths = []string{"/", "/etc", "/root", "/home", "/usr", "/var"}

	// Shell interpreters that allow arbitrary command execution
	dangerousShells = []string{"bash", "sh", "zsh", "fish", "dash", "ksh", "/bin/bash", "/bin/sh"}

	// Script interpreters that can execute arbitrary code via flags (-c, -e, etc.)
	// Matches base + versioned variants (python3, python3.11, etc.)
	dangerousInterpreters = []string{
		"python", "perl", "ruby", "node", "nodejs", "deno", "bun",
		"php", "lua", "awk", "gawk", "mawk", "nawk",
		"tclsh", "wish", "expect", "irb",
	}

	// Environment variables that commonly carry credentials
	sensitiveEnvPrefixes = []string{"AWS_", "AZURE_", "GCP_", "GOOGLE_", "GITHUB_TOKEN"}
)

// RiskLevel represents the security risk level of a capability.
type RiskLevel int

const (
	// RiskLevelLow represents minimal security risk (specific, narrow permissions).
	RiskLevelLow RiskLevel = iota
	// RiskLevelMedium represents moderate security risk (network access, read-only sensitive data).
	RiskLevelMedium
	// RiskLevelHigh represents high security risk (broad permissions, arbitrary code execution).
	RiskLevelHigh
)

// String returns a human-readable representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "low"
	case RiskLevelMedium:
		return "medium"
	case RiskLevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Descriptor is one typed grant: a kind plus ordered parameters.
// Empty parameters mean unrestricted within the kind.
// Descriptors are immutable; build them with the kind factories.
type Descriptor struct {
	kind   Kind
	params []string
}

func newDescriptor(kind Kind, params []string) Descriptor {
	if len(params) == 0 {
		return Descriptor{kind: kind}
	}
	p := make([]string, len(params))
	copy(p, params)
	return Descriptor{kind: kind, params: p}
}

// Kind returns the descriptor's kind.
func (d Descriptor) Kind() Kind {
	return d.kind
}

// Params returns a copy of the descriptor's parameters.
func (d Descriptor) Params() []string {
	if len(d.params) == 0 {
		return nil
	}
	out := make([]string, len(d.params))
	copy(out, d.params)
	return out
}

// Unrestricted reports whether the descriptor grants its whole kind.
func (d Descriptor) Unrestricted() bool {
	return len(d.params) == 0
}

// IsZero returns true if this is a zero-value descriptor.
func (d Descriptor) IsZero() bool {
	return d.kind == "" && len(d.params) == 0
}

// Equals checks if two descriptors are equal (value object equality).
func (d Descriptor) Equals(other Descriptor) bool {
	if d.kind != other.kind || len(d.params) != len(other.params) {
		return false
	}
	for i := range d.params {
		if d.params[i] != other.params[i] {
			return false
		}
	}
	return true
}

// Flag renders the descriptor in the launch runner's flag format:
// --allow-<kind> or --allow-<kind>=<p1,p2,...>.
func (d Descriptor) Flag() string {
	if len(d.params) == 0 {
		return "--allow-" + string(d.kind)
	}
	return "--allow-" + string(d.kind) + "=" + strings.Join(d.params, ",")
}

// String returns the flag form of the descriptor.
func (d Descriptor) String() string {
	return d.Flag()
}

// IsBroad returns true if this descriptor is overly permissive.
func (d Descriptor) IsBroad() bool {
	switch d.kind {
	case KindAll, KindFFI:
		return true
	case KindHRTime:
		return false
	}

	if d.Unrestricted() {
		return true
	}

	switch d.kind {
	case KindRead, KindWrite:
		for _, p := range d.params {
			if matchesAny(filepath.Clean(p), broadFilesystemPaths) {
				return true
			}
		}
	case KindRun:
		for _, p := range d.params {
			if matchesAny(p, dangerousShells) || matchesInterpreter(filepath.Base(p)) {
				return true
			}
		}
	}
	return false
}

// RiskLevel returns the security risk level of this descriptor.
func (d Descriptor) RiskLevel() RiskLevel {
	if d.IsBroad() {
		return RiskLevelHigh
	}

	switch d.kind {
	case KindNet, KindRun:
		return RiskLevelMedium
	case KindWrite:
		return RiskLevelMedium
	case KindRead:
		for _, p := range d.params {
			if strings.HasPrefix(p, "/etc/") {
				return RiskLevelMedium
			}
		}
	case KindEnv:
		for _, p := range d.params {
			if hasSensitivePrefix(p) {
				return RiskLevelMedium
			}
		}
	}

	return RiskLevelLow
}

// RiskDescription returns a human-readable explanation of the security risk.
func (d Descriptor) RiskDescription() string {
	switch d.kind {
	case KindAll:
		return "Program runs with every permission; the sandbox is effectively disabled"

	case KindFFI:
		return "Program can load native libraries, which bypass every other restriction"

	case KindHRTime:
		return "Program can measure high-resolution time (enables timing attacks)"

	case KindRead, KindWrite:
		verb := "read"
		if d.kind == KindWrite {
			verb = "modify"
		}
		if d.Unrestricted() {
			return "Program can " + verb + " ALL files on the system"
		}
		for _, p := range d.params {
			if matchesAny(filepath.Clean(p), broadFilesystemPaths) {
				return "Program can " + verb + " system or user directories: " + p
			}
		}
		return "Program can " + verb + " specific paths: " + strings.Join(d.params, ", ")

	case KindRun:
		if d.Unrestricted() {
			return "Program can execute any command"
		}
		for _, p := range d.params {
			if matchesAny(p, dangerousShells) {
				return "Program can execute arbitrary shell commands via " + p
			}
			if matchesInterpreter(filepath.Base(p)) {
				name := extractInterpreterName(filepath.Base(p))
				return "Program can execute arbitrary code via " + name + " interpreter"
			}
		}
		return "Program can execute specific commands: " + strings.Join(d.params, ", ")

	case KindNet:
		if d.Unrestricted() {
			return "Program can connect to any host on the internet"
		}
		return "Program can make network requests to: " + strings.Join(d.params, ", ")

	case KindEnv:
		if d.Unrestricted() {
			return `Grants access to ALL environment variables including:
    • Secrets and API keys from other tools
    • Shell configuration (PATH, HOME, etc.)

Recommendation: Grant only specific variables, e.g. --allow-env=HOME,LANG`
		}
		return "Program can access environment variables: " + strings.Join(d.params, ", ")

	default:
		return "Program requires capability: " + d.Flag()
	}
}

// matchesAny checks if s exactly matches any string in the list
func matchesAny(s string, list []string) bool {
	for _, item := range list {
		if s == item {
			return true
		}
	}
	return false
}

func hasSensitivePrefix(name string) bool {
	for _, prefix := range sensitiveEnvPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// matchesInterpreter checks if name is a dangerous interpreter (base or versioned)
func matchesInterpreter(name string) bool {
	for _, base := range dangerousInterpreters {
		if isInterpreterVariant(name, base) {
			return true
		}
	}
	return false
}

// extractInterpreterName returns the base interpreter name
// e.g., "python3.11" -> "python"
func extractInterpreterName(name string) string {
	for i, ch := range name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
			return name[:i]
		}
	}
	return name
}

// isInterpreterVariant checks if name matches an interpreter base name or its versioned variants.
//
// Matches:
//   - Exact: "python"
//   - Versioned: "python3", "python3.11", "python2.7"
//
// Does NOT match:
//   - Unrelated: "pythonista", "python-config"
func isInterpreterVariant(name, baseInterpreter string) bool {
	if name == baseInterpreter {
		return true
	}

	if !strings.HasPrefix(name, baseInterpreter) {
		return false
	}

	suffix := name[len(baseInterpreter):]
	first := suffix[0]
	return (first >= '0' && first <= '9') || first == '.'
}
