package capabilities

import "fmt"

// Kind identifies the category of access a Descriptor grants.
// The string value is the suffix of the launch runner's --allow-<kind> flag.
type Kind string

const (
	// KindEnv grants access to environment variables.
	KindEnv Kind = "env"
	// KindHRTime grants access to high-resolution timing.
	KindHRTime Kind = "hrtime"
	// KindNet grants network access.
	KindNet Kind = "net"
	// KindFFI grants foreign-function interface access.
	KindFFI Kind = "ffi"
	// KindRead grants filesystem read access.
	KindRead Kind = "read"
	// KindWrite grants filesystem write access.
	KindWrite Kind = "write"
	// KindRun grants permission to spawn subprocesses.
	KindRun Kind = "run"
	// KindAll grants unrestricted access.
	KindAll Kind = "all"
)

// allKinds lists every known kind in canonical order.
var allKinds = []Kind{KindEnv, KindHRTime, KindNet, KindFFI, KindRead, KindWrite, KindRun, KindAll}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown capability kind %q", s)
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Parameterized reports whether descriptors of this kind accept parameters.
func (k Kind) Parameterized() bool {
	switch k {
	case KindEnv, KindNet, KindRead, KindWrite, KindRun:
		return true
	default:
		return false
	}
}
