package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	maxConditionLength = 1000 // Character limit for readability
	maxConditionNodes  = 100  // AST node limit prevents deeply nested expressions
)

// ConditionEnv is the data visible to `when` expressions.
type ConditionEnv struct {
	OS   string            `expr:"os"`
	Arch string            `expr:"arch"`
	Env  map[string]string `expr:"env"`
}

// HostConditionEnv describes the running host.
func HostConditionEnv() ConditionEnv {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return ConditionEnv{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		Env:  env,
	}
}

// ConditionEvaluator evaluates boolean `when` expressions, e.g.
// `os == "linux" && env["CI"] != ""`. Compiled programs are cached.
type ConditionEvaluator struct {
	env ConditionEnv

	cacheMu sync.RWMutex
	cache   map[string]*vm.Program
}

// NewConditionEvaluator creates an evaluator bound to env.
func NewConditionEvaluator(env ConditionEnv) *ConditionEvaluator {
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	return &ConditionEvaluator{
		env:   env,
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate reports whether condition holds. An empty condition is an error.
func (c *ConditionEvaluator) Evaluate(condition string) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return false, fmt.Errorf("empty condition")
	}
	if len(condition) > maxConditionLength {
		return false, fmt.Errorf("condition too long (max %d chars): %d chars", maxConditionLength, len(condition))
	}

	program, err := c.compile(condition)
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", condition, err)
	}

	output, err := expr.Run(program, c.env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return a boolean", condition)
	}
	return result, nil
}

func (c *ConditionEvaluator) compile(condition string) (*vm.Program, error) {
	c.cacheMu.RLock()
	program, found := c.cache[condition]
	c.cacheMu.RUnlock()
	if found {
		return program, nil
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if program, found := c.cache[condition]; found {
		return program, nil
	}

	program, err := expr.Compile(condition,
		expr.Env(ConditionEnv{}),
		expr.AsBool(),
		expr.MaxNodes(maxConditionNodes))
	if err != nil {
		return nil, err
	}

	c.cache[condition] = program
	return program, nil
}
