package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitlab/internal/engine"
	"github.com/hoanghonghuy/commitlab/internal/gitx"
)

func stagedRepo(t *testing.T) string {
	t.Helper()
	dir := newRepo(t)
	writeFile(t, filepath.Join(dir, "foo.go"), "package foo\n\nfunc Foo() {}\n")
	_, err := gitx.Git(context.Background(), dir, "add", "-A")
	require.NoError(t, err)
	return dir
}

func TestGeneratePrint(t *testing.T) {
	dir := stagedRepo(t)

	out, _, err := execute(t, "generate", "--repo", dir, "--print", "-p", "good", "-m", "m1")
	require.NoError(t, err)
	assert.Equal(t, "fix: add foo helper\n", out)

	out, _, err = execute(t, "generate", "--repo", dir, "--print", "-p", "good", "-m", "m1", "-s", "structured")
	require.NoError(t, err)
	assert.Equal(t, "fix(app): add foo helper\n", out)
}

func TestGenerateHookFile(t *testing.T) {
	dir := stagedRepo(t)
	hookFile := filepath.Join(t.TempDir(), "COMMIT_EDITMSG")

	_, _, err := execute(t, "generate", "--repo", dir, "--yes", "--hook", hookFile, "-p", "good", "-m", "m1")
	require.NoError(t, err)

	b, err := os.ReadFile(hookFile)
	require.NoError(t, err)
	assert.Equal(t, "fix: add foo helper\n", string(b))
}

func TestGenerateExhausted(t *testing.T) {
	dir := stagedRepo(t)

	_, _, err := execute(t, "generate", "--repo", dir, "--print", "-p", "bad", "-m", "m1", "--retry-bound", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "after 2 attempts (invalid-type)")
}

func TestGenerateWordBounds(t *testing.T) {
	dir := stagedRepo(t)

	_, _, err := execute(t, "generate", "--repo", dir, "--print", "-p", "good", "-m", "m1", "--retry-bound", "0", "--min-words", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(word-count-below-min)")

	out, _, err := execute(t, "generate", "--repo", dir, "--print", "-p", "good", "-m", "m1", "--max-words", "3")
	require.NoError(t, err)
	assert.Equal(t, "fix: add foo helper\n", out)
}

func TestGenerateInvalidSettings(t *testing.T) {
	_, _, err := execute(t, "generate", "--print", "-p", "bard", "-m", "m1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "generate", "--print", "-p", "good", "-m", "m1", "--feedback", "sometimes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerationFailedMessage(t *testing.T) {
	err := generationFailed(engine.Result{
		Reason:   engine.ReasonTimeout,
		Detail:   "context deadline exceeded",
		Attempts: []engine.Attempt{{N: 1}},
	})
	assert.Equal(t, "no valid commit message after 1 attempts (timeout): context deadline exceeded", err.Error())
}
