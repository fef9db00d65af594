package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hoanghonghuy/commitlab/internal/engine"
)

var (
	ErrNoStagedChanges = errors.New("no staged changes. Run: git add -A")
	ErrAllIgnored      = errors.New("all staged files are ignored")
)

// DefaultIgnores are never sent to a provider.
var DefaultIgnores = []string{
	"go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"*.map", "*.svg", "*.min.js", "*.min.css",
}

const maxDiffBytes = 100 * 1024

func Git(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoRoot}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %v failed: %w\n%s", args, err, stderr.String())
	}
	return stdout.String(), nil
}

// CurrentBranch returns the checked out branch, which may not have commits
// yet, or the short HEAD hash when detached.
func CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	out, err := Git(ctx, repoRoot, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		out, err = Git(ctx, repoRoot, "rev-parse", "--short", "HEAD")
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(out), nil
}

func StagedFiles(ctx context.Context, repoRoot string) ([]string, error) {
	out, err := Git(ctx, repoRoot, "diff", "--staged", "--name-only")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// StagedDiff reads the staged diff and short status of every staged file
// not matched by DefaultIgnores or ignores.
func StagedDiff(ctx context.Context, repoRoot string, ignores []string) (engine.DiffInput, error) {
	files, err := StagedFiles(ctx, repoRoot)
	if err != nil {
		return engine.DiffInput{}, err
	}
	if len(files) == 0 {
		return engine.DiffInput{}, ErrNoStagedChanges
	}

	all := append(append([]string{}, DefaultIgnores...), ignores...)
	var kept []string
	for _, f := range files {
		if !ShouldIgnore(f, all) {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return engine.DiffInput{}, fmt.Errorf("%w (checked %d files)", ErrAllIgnored, len(files))
	}

	diff, err := Git(ctx, repoRoot, append([]string{"diff", "--staged", "--"}, kept...)...)
	if err != nil {
		return engine.DiffInput{}, err
	}
	if len(diff) > maxDiffBytes {
		diff = diff[:maxDiffBytes] + "\n...[Diff truncated due to size]...\n"
	}

	status, err := Git(ctx, repoRoot, append([]string{"status", "--short", "--"}, kept...)...)
	if err != nil {
		return engine.DiffInput{}, err
	}
	return engine.DiffInput{Diff: diff, Status: status}, nil
}

// ShouldIgnore matches path, or its base name, against equality and glob
// patterns.
func ShouldIgnore(path string, ignores []string) bool {
	base := filepath.Base(path)
	for _, ign := range ignores {
		if ign == base || ign == path {
			return true
		}
		if matched, _ := filepath.Match(ign, base); matched {
			return true
		}
	}
	return false
}

func Commit(ctx context.Context, repoRoot, message string) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return errors.New("commit message cannot be empty")
	}
	_, err := Git(ctx, repoRoot, "commit", "-m", msg)
	return err
}

func splitNonEmptyLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
