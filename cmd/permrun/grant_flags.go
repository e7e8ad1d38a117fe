package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// unrestrictedValue is what a bare --allow-<kind> flag sets. Passing it
// explicitly (--allow-net='*') means the same.
const unrestrictedValue = "*"

// grantOccurrence is one --allow-* flag as written on the command line.
type grantOccurrence struct {
	kind   capabilities.Kind
	values []string // empty means unrestricted
}

// grantFlags collects --allow-* flags in command-line order so the
// normalized set keeps first-appearance order across kinds.
type grantFlags struct {
	occurrences []grantOccurrence
}

// allowValue implements pflag.Value for one --allow-<kind> flag.
type allowValue struct {
	kind    capabilities.Kind
	boolean bool
	flags   *grantFlags
	shown   []string
}

var _ pflag.Value = (*allowValue)(nil)

func (v *allowValue) String() string {
	return strings.Join(v.shown, ",")
}

func (v *allowValue) Type() string {
	if v.boolean {
		return "bool"
	}
	return "list"
}

func (v *allowValue) Set(s string) error {
	if v.boolean {
		enabled, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("--allow-%s takes no value", v.kind)
		}
		if enabled {
			v.flags.occurrences = append(v.flags.occurrences, grantOccurrence{kind: v.kind})
		}
		return nil
	}

	if s == unrestrictedValue {
		v.flags.occurrences = append(v.flags.occurrences, grantOccurrence{kind: v.kind})
		v.shown = append(v.shown, s)
		return nil
	}

	var values []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("--allow-%s requires a value or no '=' at all", v.kind)
	}
	v.flags.occurrences = append(v.flags.occurrences, grantOccurrence{kind: v.kind, values: values})
	v.shown = append(v.shown, values...)
	return nil
}

var allowFlagUsage = map[capabilities.Kind]string{
	capabilities.KindEnv:    "allow reading environment variables (all when no names are given)",
	capabilities.KindHRTime: "allow high-resolution time measurement",
	capabilities.KindNet:    "allow network access to host[:port] entries (all when none are given)",
	capabilities.KindFFI:    "allow loading native libraries",
	capabilities.KindRead:   "allow reading the given paths (all when none are given)",
	capabilities.KindWrite:  "allow writing the given paths (all when none are given)",
	capabilities.KindRun:    "allow running the given programs (all when none are given)",
	capabilities.KindAll:    "allow everything",
}

// register adds one --allow-<kind> flag per capability kind to cmd.
func (g *grantFlags) register(cmd *cobra.Command) {
	for _, kind := range capabilities.Kinds() {
		value := &allowValue{kind: kind, boolean: !kind.Parameterized(), flags: g}
		name := "allow-" + kind.String()

		var flag *pflag.Flag
		if kind == capabilities.KindAll {
			flag = cmd.Flags().VarPF(value, name, "A", allowFlagUsage[kind])
		} else {
			flag = cmd.Flags().VarPF(value, name, "", allowFlagUsage[kind])
		}

		if value.boolean {
			flag.NoOptDefVal = "true"
		} else {
			flag.NoOptDefVal = unrestrictedValue
		}
	}
}

// entries converts the collected flags to capability entries. Relative read
// and write paths resolve against the working directory and must exist.
func (g *grantFlags) entries() ([]capabilities.Entry, error) {
	entries := make([]capabilities.Entry, 0, len(g.occurrences))
	for _, occ := range g.occurrences {
		d, err := occ.descriptor()
		if err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	return entries, nil
}

func (o grantOccurrence) descriptor() (capabilities.Descriptor, error) {
	switch o.kind {
	case capabilities.KindEnv:
		return capabilities.Env(o.values...), nil
	case capabilities.KindRun:
		return capabilities.Run(o.values...), nil
	case capabilities.KindRead:
		return capabilities.Read(o.values...)
	case capabilities.KindWrite:
		return capabilities.Write(o.values...)
	case capabilities.KindNet:
		groups := make([]any, 0, len(o.values))
		for _, v := range o.values {
			group, err := parseNetAddress(v)
			if err != nil {
				return capabilities.Descriptor{}, err
			}
			groups = append(groups, group)
		}
		return capabilities.Net(groups...), nil
	default:
		return capabilities.Restore(o.kind.String(), nil)
	}
}

// parseNetAddress splits "host", "host:port" or ":port" into a Net group.
func parseNetAddress(s string) ([]any, error) {
	group, err := capabilities.ParseNetAddress(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --allow-net entry: %w", err)
	}
	return group, nil
}
