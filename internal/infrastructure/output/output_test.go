package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/permrun/internal/application/dto"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
	"github.com/reglet-dev/permrun/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestPlan creates a sample launch plan for testing.
func createTestPlan(t *testing.T) *dto.LaunchPlan {
	t.Helper()
	id, err := values.ParseRunID("3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b")
	require.NoError(t, err)

	set := capabilities.Normalize(
		capabilities.Env("HOME"),
		capabilities.Net([]any{"example.com", 443}),
		capabilities.Run("bash"),
	)
	return &dto.LaunchPlan{
		RunID:        id,
		Runner:       "deno",
		Target:       "/srv/app/main.ts",
		Command:      []string{"deno", "run", "--allow-env=HOME", "--allow-net=example.com:443", "--allow-run=bash", "/srv/app/main.ts"},
		Capabilities: dto.NewCapabilityViews(set),
	}
}

func TestTableFormatter_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false

	require.NoError(t, formatter.Format(createTestPlan(t)))
	out := buf.String()

	assert.Contains(t, out, "Run:     3f2b8c1e")
	assert.Contains(t, out, "Target:  /srv/app/main.ts")
	assert.Contains(t, out, "Command: deno run --allow-env=HOME --allow-net=example.com:443 --allow-run=bash /srv/app/main.ts")
	assert.Contains(t, out, "env     --allow-env=HOME")
	assert.Contains(t, out, "Risk: HIGH (broad)")
	assert.Contains(t, out, "Risk: MEDIUM")
	assert.NotContains(t, out, "\033[")
}

func TestTableFormatter_Format_Color(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(createTestPlan(t)))
	assert.Contains(t, buf.String(), colorRed)
}

func TestTableFormatter_Format_NoCapabilities(t *testing.T) {
	t.Parallel()

	plan := createTestPlan(t)
	plan.Capabilities = nil

	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false
	require.NoError(t, formatter.Format(plan))
	assert.Contains(t, buf.String(), "No capabilities requested.")
}

func TestTableFormatter_FormatResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	formatter := NewTableFormatter(&buf)
	formatter.EnableColor = false

	formatter.FormatResults([]*dto.LaunchResult{
		{RunID: values.NewRunID(), Target: "a.ts", ExitCode: 0},
		{RunID: values.NewRunID(), Target: "b.ts", ExitCode: 3},
		nil,
	})

	out := buf.String()
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "b.ts (exit 3)")
	assert.Contains(t, out, "3 launched, 1 failed")
}

func TestJSONFormatter_Format_Indented(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf, true).Format(createTestPlan(t)))

	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b", decoded["run_id"])
	assert.Equal(t, "deno", decoded["runner"])

	caps, ok := decoded["capabilities"].([]interface{})
	require.True(t, ok)
	require.Len(t, caps, 3)
	first := caps[0].(map[string]interface{})
	assert.Equal(t, "env", first["kind"])
	assert.Equal(t, "--allow-env=HOME", first["flag"])
	assert.Equal(t, false, first["broad"])
}

func TestJSONFormatter_Format_Compact(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf, false).Format(createTestPlan(t)))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestYAMLFormatter_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(&buf).Format(createTestPlan(t)))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/srv/app/main.ts", decoded["target"])

	command, ok := decoded["command"].([]interface{})
	require.True(t, ok)
	assert.Len(t, command, 6)
}
