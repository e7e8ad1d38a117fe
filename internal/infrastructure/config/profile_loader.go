// Package config provides infrastructure for loading launch profiles.
// This package handles YAML parsing, schema validation, variable substitution
// and conditional capability entries.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reglet-dev/permrun/internal/application/dto"
	apperrors "github.com/reglet-dev/permrun/internal/application/errors"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

//go:embed profile.schema.json
var profileSchemaJSON []byte

const profileSchemaURL = "profile.schema.json"

// compileProfileSchema compiles the embedded schema once.
var compileProfileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(profileSchemaURL, bytes.NewReader(profileSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add profile schema resource: %w", err)
	}
	return compiler.Compile(profileSchemaURL)
})

// profileDocument is the YAML shape of a launch profile.
type profileDocument struct {
	Target       string                 `yaml:"target"`
	Dir          string                 `yaml:"dir"`
	Timeout      string                 `yaml:"timeout"`
	Runner       runnerSection          `yaml:"runner"`
	Vars         map[string]interface{} `yaml:"vars"`
	Capabilities []interface{}          `yaml:"capabilities"`
}

type runnerSection struct {
	Command string `yaml:"command"`
	Version string `yaml:"version"`
}

// ProfileLoader loads launch profiles from YAML files.
//
// A profile names the target program, the launch runner and a list of
// capability entries. Each entry is a single-key map (env, hrtime, net, ffi,
// read, write, run, all or group) with an optional `when` condition.
// Relative paths are resolved from the profile's directory.
type ProfileLoader struct {
	conditions  *ConditionEvaluator
	substitutor *VariableSubstitutor
}

// NewProfileLoader creates a profile loader that evaluates conditions against
// the host platform and environment.
func NewProfileLoader() *ProfileLoader {
	return NewProfileLoaderWithEnv(HostConditionEnv(), nil)
}

// NewProfileLoaderWithEnv creates a profile loader with an explicit condition
// environment and environment lookup (nil uses the process environment).
func NewProfileLoaderWithEnv(env ConditionEnv, lookupEnv func(string) (string, bool)) *ProfileLoader {
	return &ProfileLoader{
		conditions:  NewConditionEvaluator(env),
		substitutor: NewVariableSubstitutor(lookupEnv),
	}
}

// LoadProfile loads, validates and resolves the profile at path.
func (l *ProfileLoader) LoadProfile(path string) (*dto.LaunchRequest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", path, err)
	}

	// Security: Use os.OpenRoot to prevent path traversal attacks
	dir := filepath.Dir(absPath)
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile directory: %w", err)
	}
	defer func() {
		_ = root.Close() // Best-effort cleanup
	}()

	file, err := root.Open(filepath.Base(absPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	defer func() {
		_ = file.Close() // Best-effort cleanup
	}()

	return l.LoadProfileFromReader(file, dir)
}

// LoadProfileFromReader loads a profile from r, resolving relative paths
// against baseDir.
func (l *ProfileLoader) LoadProfileFromReader(r io.Reader, baseDir string) (*dto.LaunchRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := validateProfileSchema(data); err != nil {
		return nil, err
	}

	var doc profileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile YAML: %w", err)
	}

	return l.resolve(&doc, baseDir)
}

// resolve turns a decoded document into a launch request.
func (l *ProfileLoader) resolve(doc *profileDocument, baseDir string) (*dto.LaunchRequest, error) {
	target, err := l.substitutor.substituteInString(doc.Target, doc.Vars)
	if err != nil {
		return nil, apperrors.NewValidationError("target", err.Error())
	}
	dir, err := l.substitutor.substituteInString(doc.Dir, doc.Vars)
	if err != nil {
		return nil, apperrors.NewValidationError("dir", err.Error())
	}

	var timeout time.Duration
	if doc.Timeout != "" {
		timeout, err = time.ParseDuration(doc.Timeout)
		if err != nil || timeout < 0 {
			return nil, apperrors.NewValidationError("timeout", fmt.Sprintf("invalid duration %q", doc.Timeout))
		}
	}

	req := &dto.LaunchRequest{
		Target:        resolvePath(baseDir, target),
		Runner:        doc.Runner.Command,
		RunnerVersion: doc.Runner.Version,
		Options:       dto.LaunchOptions{Timeout: timeout},
	}
	if dir != "" {
		req.Dir = resolvePath(baseDir, dir)
	}

	b := &entryBuilder{loader: l, vars: doc.Vars, baseDir: baseDir}
	req.Entries, err = b.buildList(doc.Capabilities, "capabilities")
	if err != nil {
		return nil, err
	}

	return req, nil
}

// entryBuilder converts decoded capability nodes into entries.
type entryBuilder struct {
	loader  *ProfileLoader
	vars    map[string]interface{}
	baseDir string
}

func (b *entryBuilder) buildList(nodes []interface{}, field string) ([]capabilities.Entry, error) {
	entries := make([]capabilities.Entry, 0, len(nodes))
	for i, node := range nodes {
		entry, err := b.build(node, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// build returns nil when the entry's condition is false.
func (b *entryBuilder) build(node interface{}, field string) (capabilities.Entry, error) {
	m, ok := node.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewValidationError(field, "capability entry must be a map")
	}

	if raw, ok := m["when"]; ok {
		condition, _ := raw.(string)
		matched, err := b.loader.conditions.Evaluate(condition)
		if err != nil {
			return nil, apperrors.NewValidationError(field+".when", err.Error())
		}
		if !matched {
			return nil, nil
		}
	}

	var keys []string
	for key := range m {
		if key != "when" {
			keys = append(keys, key)
		}
	}
	if len(keys) != 1 {
		sort.Strings(keys)
		return nil, apperrors.NewValidationError(field, "capability entry must have exactly one kind",
			"found: "+strings.Join(keys, ", "))
	}
	key := keys[0]
	field += "." + key

	if key == "group" {
		nodes, _ := m[key].([]interface{})
		group, err := b.buildList(nodes, field)
		if err != nil {
			return nil, err
		}
		return capabilities.Group(group), nil
	}

	value, err := b.loader.substitutor.substituteInValue(m[key], b.vars)
	if err != nil {
		return nil, apperrors.NewValidationError(field, err.Error())
	}

	kind, err := capabilities.ParseKind(key)
	if err != nil {
		return nil, apperrors.NewValidationError(field, err.Error())
	}

	d, err := b.descriptor(kind, value)
	if err != nil {
		return nil, apperrors.NewValidationError(field, err.Error())
	}
	return d, nil
}

// descriptor builds one descriptor. `true` or an empty list means unrestricted.
func (b *entryBuilder) descriptor(kind capabilities.Kind, value interface{}) (capabilities.Descriptor, error) {
	list, _ := value.([]interface{})

	switch kind {
	case capabilities.KindHRTime:
		return capabilities.HRTime(), nil
	case capabilities.KindFFI:
		return capabilities.FFI(), nil
	case capabilities.KindAll:
		return capabilities.All(), nil
	case capabilities.KindNet:
		groups, err := netGroups(list)
		if err != nil {
			return capabilities.Descriptor{}, err
		}
		return capabilities.Net(groups...), nil
	}

	names, err := toStrings(list)
	if err != nil {
		return capabilities.Descriptor{}, err
	}

	switch kind {
	case capabilities.KindEnv:
		return capabilities.Env(names...), nil
	case capabilities.KindRun:
		return capabilities.Run(names...), nil
	case capabilities.KindRead:
		return capabilities.Read(b.resolvePaths(names)...)
	case capabilities.KindWrite:
		return capabilities.Write(b.resolvePaths(names)...)
	default:
		return capabilities.Descriptor{}, fmt.Errorf("unsupported capability kind %q", kind)
	}
}

func (b *entryBuilder) resolvePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = resolvePath(b.baseDir, p)
	}
	return out
}

// netGroups validates profile network entries. A scalar string is
// "host", "host:port" or ":port"; inside a group strings are hostnames and
// numbers or all-digit strings are ports. Anything else is an error.
func netGroups(list []interface{}) ([]any, error) {
	groups := make([]any, 0, len(list))
	for i, item := range list {
		var (
			group []any
			err   error
		)
		if members, ok := item.([]interface{}); ok {
			group, err = netGroup(members)
		} else {
			group, err = netScalar(item)
		}
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func netScalar(value interface{}) ([]any, error) {
	s, ok := value.(string)
	if !ok {
		port, valid := capabilities.ToPort(value)
		if !valid {
			return nil, fmt.Errorf("invalid port %v", value)
		}
		return []any{port}, nil
	}
	if isDigits(s) {
		port, valid := digitPort(s)
		if !valid {
			return nil, fmt.Errorf("invalid port %q", s)
		}
		return []any{port}, nil
	}
	return capabilities.ParseNetAddress(s)
}

func netGroup(members []interface{}) ([]any, error) {
	if len(members) == 0 {
		return nil, errors.New("empty network group")
	}
	group := make([]any, 0, len(members))
	for _, m := range members {
		s, ok := m.(string)
		switch {
		case !ok:
			port, valid := capabilities.ToPort(m)
			if !valid {
				return nil, fmt.Errorf("invalid port %v", m)
			}
			group = append(group, port)
		case isDigits(s):
			port, valid := digitPort(s)
			if !valid {
				return nil, fmt.Errorf("invalid port %q", s)
			}
			group = append(group, port)
		case capabilities.ValidHostname(s):
			group = append(group, s)
		default:
			return nil, fmt.Errorf("invalid hostname %q", s)
		}
	}
	return group, nil
}

// digitPort converts an all-digit string, typically a substituted variable,
// to a port.
func digitPort(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return capabilities.ToPort(n)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func toStrings(list []interface{}) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		out = append(out, s)
	}
	return out, nil
}

// resolvePath makes p absolute relative to baseDir. A leading ~/ expands to
// the home directory.
func resolvePath(baseDir, p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// validateProfileSchema validates raw profile YAML against the embedded schema.
func validateProfileSchema(data []byte) error {
	schema, err := compileProfileSchema()
	if err != nil {
		return fmt.Errorf("failed to compile profile schema: %w", err)
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to decode profile YAML: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode profile YAML: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return formatSchemaValidationError(validationErr)
		}
		return fmt.Errorf("profile validation failed: %w", err)
	}
	return nil
}

// formatSchemaValidationError flattens a schema error tree into a ValidationError.
func formatSchemaValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collectErrors func(*jsonschema.ValidationError)
	collectErrors = func(e *jsonschema.ValidationError) {
		// Leaf causes carry the useful messages
		if len(e.Causes) == 0 && e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collectErrors(cause)
		}
	}
	collectErrors(err)

	if len(messages) == 0 {
		messages = append(messages, err.Error())
	}
	return apperrors.NewValidationError("profile", "does not match schema", messages...)
}
