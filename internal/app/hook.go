package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/gitx"
)

const hookName = "prepare-commit-msg"

var ErrHookExists = errors.New("hook already exists")

func newInstallHookCommand(root *RootOptions) *cobra.Command {
	var repo string
	var force bool
	cmd := &cobra.Command{
		Use:           "install-hook",
		Short:         "Install a prepare-commit-msg hook that runs commitlab generate",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				exe = "commitlab"
			} else if abs, err := filepath.Abs(exe); err == nil {
				exe = abs
			}
			path, err := InstallHook(cmd.Context(), repo, exe, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Hook installed to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository path (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing hook")
	return cmd
}

// InstallHook writes the prepare-commit-msg hook into the repository's git
// directory and returns its path. An existing hook is kept unless force is set.
func InstallHook(ctx context.Context, repoArg, exe string, force bool) (string, error) {
	repoRoot, err := gitx.ResolveRepoRoot(ctx, repoArg)
	if err != nil {
		return "", err
	}
	gitDir, err := gitx.GitDir(ctx, repoRoot)
	if err != nil {
		return "", err
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0755); err != nil {
		return "", fmt.Errorf("create hooks dir: %w", err)
	}

	hookPath := filepath.Join(hooksDir, hookName)
	if _, err := os.Stat(hookPath); err == nil && !force {
		return "", fmt.Errorf("%w: %s, remove it or pass --force", ErrHookExists, hookPath)
	}

	f, err := os.OpenFile(hookPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err != nil {
		return "", fmt.Errorf("write hook file: %w", err)
	}
	defer f.Close()
	if err := writeHookScript(f, exe); err != nil {
		return "", fmt.Errorf("write hook file: %w", err)
	}
	return hookPath, nil
}

func writeHookScript(w io.Writer, exe string) error {
	_, err := fmt.Fprintf(w, `#!/bin/sh
# commitlab hook
# $1 is the message file, $2 the message source, $3 a SHA.

COMMIT_MSG_FILE=$1
COMMIT_SOURCE=$2

# -m, merges, squashes and amends already have a message.
case "$COMMIT_SOURCE" in
  message|merge|squash|commit) exit 0 ;;
esac

# Interactive UI needs the terminal even inside a hook.
if [ -t 0 ]; then
    exec < /dev/tty
fi

"%s" generate --hook "$COMMIT_MSG_FILE" < /dev/tty > /dev/tty
`, exe)
	return err
}
