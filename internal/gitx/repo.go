package gitx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolveRepoRoot finds the top level of the repository containing repoArg,
// or the current directory when repoArg is empty.
func ResolveRepoRoot(ctx context.Context, repoArg string) (string, error) {
	if strings.TrimSpace(repoArg) != "" {
		p, err := filepath.Abs(repoArg)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
		root, err := Git(ctx, p, "rev-parse", "--show-toplevel")
		if err == nil {
			return strings.TrimSpace(root), nil
		}
		return p, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := Git(ctx, cwd, "rev-parse", "--show-toplevel")
	if err == nil {
		return strings.TrimSpace(root), nil
	}

	// walk up to find .git when git itself cannot tell
	cur := cwd
	for {
		if exists(filepath.Join(cur, ".git")) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	return "", errors.New("not inside a git repository. Use --repo /path/to/repo")
}

// GitDir returns the repository's .git directory, which may live outside
// the work tree for worktrees and submodules.
func GitDir(ctx context.Context, repoRoot string) (string, error) {
	out, err := Git(ctx, repoRoot, "rev-parse", "--git-dir")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoRoot, dir)
	}
	return dir, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func RepoNameFromRoot(repoRoot string) string {
	return filepath.Base(repoRoot)
}
