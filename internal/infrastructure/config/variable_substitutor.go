package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
)

// placeholderPattern matches {{ .vars.key }} and {{ env "NAME" }}.
// Both forms are replaced in a single pass so substituted values are never
// re-evaluated.
var placeholderPattern = regexp.MustCompile(
	`\{\{\s*(?:\.vars\.([a-zA-Z0-9_.]+)|env\s+"([A-Za-z_][A-Za-z0-9_]*)")\s*\}\}`)

// VariableSubstitutor expands profile placeholders.
type VariableSubstitutor struct {
	lookupEnv func(string) (string, bool)
}

// NewVariableSubstitutor creates a new variable substitutor. A nil lookupEnv
// reads the process environment.
func NewVariableSubstitutor(lookupEnv func(string) (string, bool)) *VariableSubstitutor {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &VariableSubstitutor{
		lookupEnv: lookupEnv,
	}
}

// substituteInString replaces placeholders with values.
// Returns an error if a referenced variable is not found.
func (s *VariableSubstitutor) substituteInString(str string, vars map[string]interface{}) (string, error) {
	var lastErr error

	result := placeholderPattern.ReplaceAllStringFunc(str, func(match string) string {
		submatches := placeholderPattern.FindStringSubmatch(match)
		if len(submatches) < 3 {
			lastErr = fmt.Errorf("invalid placeholder: %s", match)
			return match
		}

		if name := submatches[2]; name != "" {
			value, ok := s.lookupEnv(name)
			if !ok {
				lastErr = fmt.Errorf("environment variable not set: %s", name)
				return match
			}
			return value
		}

		value, err := lookupVar(vars, submatches[1])
		if err != nil {
			lastErr = err
			return match
		}
		return fmt.Sprintf("%v", value)
	})

	if lastErr != nil {
		return "", lastErr
	}
	return result, nil
}

// substituteInValue recursively substitutes inside strings, lists and maps
// decoded from YAML. Lists and maps are modified in place.
func (s *VariableSubstitutor) substituteInValue(value interface{}, vars map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return s.substituteInString(v, vars)

	case map[string]interface{}:
		for key, elem := range v {
			substituted, err := s.substituteInValue(elem, vars)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			v[key] = substituted
		}
		return v, nil

	case []interface{}:
		for i, elem := range v {
			substituted, err := s.substituteInValue(elem, vars)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			v[i] = substituted
		}
		return v, nil

	default:
		// Numbers and booleans need no substitution
		return value, nil
	}
}

// lookupVar looks up a variable value by path (e.g., "paths.data").
// Supports nested paths using dot notation.
func lookupVar(vars map[string]interface{}, path string) (interface{}, error) {
	parts := strings.Split(path, ".")
	current := interface{}(vars)

	for i, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("variable path %s: cannot access %s (not a map)", path, strings.Join(parts[:i+1], "."))
		}

		value, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("variable not found: %s", path)
		}

		current = value
	}

	switch v := current.(type) {
	case string, int, int64, uint64, float64, bool:
		return v, nil
	default:
		val := reflect.ValueOf(v)
		switch val.Kind() {
		case reflect.Map, reflect.Slice:
			return nil, fmt.Errorf("variable %s is not a scalar", path)
		}
		return v, nil
	}
}
