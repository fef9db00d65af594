package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/engine"
	"github.com/hoanghonghuy/commitlab/internal/gitx"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
)

type dumpPromptOptions struct {
	settingsFlags
	repo       string
	diffFile   string
	statusFile string
	outPath    string
}

type promptDump struct {
	Strategy string `json:"strategy"`
	JSON     bool   `json:"json"`
	System   string `json:"system"`
	User     string `json:"user"`
}

func newDumpPromptCommand(root *RootOptions) *cobra.Command {
	opts := &dumpPromptOptions{}
	cmd := &cobra.Command{
		Use:           "dump-prompt",
		Short:         "Print the prompt that would be sent for the staged changes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDumpPrompt(cmd, root, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository path (default: current directory)")
	cmd.Flags().StringVar(&opts.diffFile, "diff", "", "read the diff from this file instead of the staged changes")
	cmd.Flags().StringVar(&opts.statusFile, "status", "", "name-status listing to go with --diff")
	cmd.Flags().StringVarP(&opts.outPath, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func runDumpPrompt(cmd *cobra.Command, root *RootOptions, opts *dumpPromptOptions) error {
	file, err := config.Load(root.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	settings := opts.resolve(cmd, file, root.Getenv)
	strategy, err := prompt.Lookup(settings.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "strategy", err)
	}

	in, err := opts.input(cmd, file)
	if err != nil {
		return err
	}
	p := strategy.Build(in.Diff, in.Status, opts.promptOptions(settings))
	dump := promptDump{Strategy: strategy.Name(), JSON: strategy.JSON(), System: p.System, User: p.User}

	var out io.Writer = cmd.OutOrStdout()
	if strings.TrimSpace(opts.outPath) != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writePrompt(out, root.Format, dump)
}

func (o *dumpPromptOptions) input(cmd *cobra.Command, file config.FileConfig) (engine.DiffInput, error) {
	if o.diffFile == "" {
		repoRoot, err := gitx.ResolveRepoRoot(cmd.Context(), o.repo)
		if err != nil {
			return engine.DiffInput{}, err
		}
		return gitx.StagedDiff(cmd.Context(), repoRoot, file.IgnoredFiles)
	}

	diff, err := os.ReadFile(o.diffFile)
	if err != nil {
		return engine.DiffInput{}, fmt.Errorf("read diff: %w", err)
	}
	in := engine.DiffInput{ID: o.diffFile, Diff: string(diff)}
	if o.statusFile != "" {
		status, err := os.ReadFile(o.statusFile)
		if err != nil {
			return engine.DiffInput{}, fmt.Errorf("read status: %w", err)
		}
		in.Status = string(status)
	}
	return in, nil
}

func writePrompt(w io.Writer, format string, d promptDump) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		return nil
	}
	_, err := fmt.Fprintf(w, "=== system (%s) ===\n%s=== user ===\n%s", d.Strategy, d.System, d.User)
	return err
}
