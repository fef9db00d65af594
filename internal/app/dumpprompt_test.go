package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpPromptText(t *testing.T) {
	diff := filepath.Join(t.TempDir(), "change.diff")
	writeFile(t, diff, "+func Foo() {}\n")

	out, _, err := execute(t, "dump-prompt", "--diff", diff, "--intent", "expose Foo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "=== system (zero_shot) ===\n"), out)
	assert.Contains(t, out, "+func Foo() {}")
	assert.Contains(t, out, "expose Foo")
}

func TestDumpPromptJSONToFile(t *testing.T) {
	dir := t.TempDir()
	diff := filepath.Join(dir, "change.diff")
	status := filepath.Join(dir, "change.status")
	outPath := filepath.Join(dir, "prompt.json")
	writeFile(t, diff, "+func Foo() {}\n")
	writeFile(t, status, "A\tfoo.go\n")

	out, _, err := execute(t, "--format", "json", "dump-prompt", "--diff", diff, "--status", status, "-s", "Structured", "--max-header-length", "50", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got promptDump
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "structured", got.Strategy)
	assert.True(t, got.JSON)
	assert.Contains(t, got.System, "50")
	assert.Contains(t, got.User, "A\tfoo.go")
	assert.Contains(t, got.User, "+func Foo() {}")
}

func TestDumpPromptUnknownStrategy(t *testing.T) {
	diff := filepath.Join(t.TempDir(), "change.diff")
	writeFile(t, diff, "+x\n")

	_, _, err := execute(t, "dump-prompt", "--diff", diff, "-s", "chain_of_thought")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
