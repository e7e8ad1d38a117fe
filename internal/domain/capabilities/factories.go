package capabilities

import (
	"fmt"
	"path/filepath"
)

// Env grants access to the named environment variables, or to all of them
// when no names are given.
func Env(names ...string) Descriptor {
	return newDescriptor(KindEnv, names)
}

// HRTime grants high-resolution timing.
func HRTime() Descriptor {
	return newDescriptor(KindHRTime, nil)
}

// FFI grants foreign-function interface access.
func FFI() Descriptor {
	return newDescriptor(KindFFI, nil)
}

// Run grants permission to spawn the named processes, or any process when no
// names are given.
func Run(names ...string) Descriptor {
	return newDescriptor(KindRun, names)
}

// All grants unrestricted access.
func All() Descriptor {
	return newDescriptor(KindAll, nil)
}

// Read grants read access to the given paths. Each path is resolved to its
// absolute, symlink-free form and must exist.
func Read(paths ...string) (Descriptor, error) {
	resolved, err := canonicalPaths(KindRead, paths)
	if err != nil {
		return Descriptor{}, err
	}
	return newDescriptor(KindRead, resolved), nil
}

// Write grants write access to the given paths. Each path is resolved to its
// absolute, symlink-free form and must exist.
func Write(paths ...string) (Descriptor, error) {
	resolved, err := canonicalPaths(KindWrite, paths)
	if err != nil {
		return Descriptor{}, err
	}
	return newDescriptor(KindWrite, resolved), nil
}

// MustRead is like Read but panics on error. Intended for tests and static setup.
func MustRead(paths ...string) Descriptor {
	d, err := Read(paths...)
	if err != nil {
		panic(err)
	}
	return d
}

// MustWrite is like Write but panics on error. Intended for tests and static setup.
func MustWrite(paths ...string) Descriptor {
	d, err := Write(paths...)
	if err != nil {
		panic(err)
	}
	return d
}

// CanonicalPath returns the absolute, symlink-resolved form of path.
// The path must exist.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func canonicalPaths(kind Kind, paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		resolved, err := CanonicalPath(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s path %q: %w", kind, p, err)
		}
		out = append(out, resolved)
	}
	return out, nil
}

// Restore rebuilds a descriptor from persisted parts. Parameters are taken
// verbatim: paths are expected to be canonical already and network entries
// already rendered.
func Restore(kind string, params []string) (Descriptor, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Descriptor{}, err
	}
	if !k.Parameterized() && len(params) > 0 {
		return Descriptor{}, fmt.Errorf("capability kind %q takes no parameters", kind)
	}
	return newDescriptor(k, params), nil
}
