package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/conventional"
	"github.com/hoanghonghuy/commitlab/internal/engine"
	"github.com/hoanghonghuy/commitlab/internal/gitx"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
)

type generateOptions struct {
	settingsFlags
	repo     string
	hookFile string
	print    bool
	yes      bool
}

func newGenerateCommand(root *RootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate a commit message for the staged changes",
		Long: `Generate a Conventional Commits message for the staged changes.

The provider is asked for a candidate, the candidate is validated and
rejected candidates are retried with feedback up to --retry-bound times.
If every attempt fails and a fallback target is configured, the fallback
gets the same number of attempts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository path (default: current directory)")
	cmd.Flags().StringVar(&opts.hookFile, "hook", "", "write the message to this file instead of committing (prepare-commit-msg)")
	cmd.Flags().BoolVar(&opts.print, "print", false, "print the message and exit")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept the first valid message without asking")
	return cmd
}

// generator produces one result per call; regenerate calls it again.
type generator func(ctx context.Context) engine.Result

func runGenerate(cmd *cobra.Command, root *RootOptions, opts *generateOptions) error {
	ctx := cmd.Context()

	file, err := config.Load(root.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	settings := opts.resolve(cmd, file, root.Getenv)
	if err := settings.Validate(root.Registry.Names(), prompt.Names()); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	fb := fallbackSettings(settings, file)
	if fb != nil {
		if err := fb.Validate(root.Registry.Names(), prompt.Names()); err != nil {
			return WrapExitError(ExitCommandError, "invalid fallback", err)
		}
	}

	repoRoot, err := gitx.ResolveRepoRoot(ctx, opts.repo)
	if err != nil {
		return err
	}
	in, err := gitx.StagedDiff(ctx, repoRoot, file.IgnoredFiles)
	if err != nil {
		return err
	}

	creds := config.CredentialsFromEnv().Merge(file.Credentials)
	primary, err := buildLoop(root, creds, settings, opts.promptOptions(settings))
	if err != nil {
		return WrapExitError(ExitCommandError, "primary target", err)
	}
	var fallback *engine.Loop
	if fb != nil {
		fallback, err = buildLoop(root, creds, *fb, opts.promptOptions(*fb))
		if err != nil {
			return WrapExitError(ExitCommandError, "fallback target", err)
		}
	}

	gen := func(ctx context.Context) engine.Result {
		return engine.RunWithFallback(ctx, in, primary, fallback)
	}

	branch, err := gitx.CurrentBranch(ctx, repoRoot)
	if err != nil {
		root.log.Debug().Err(err).Msg("no current branch")
	}
	root.log.Debug().
		Str("repo", gitx.RepoNameFromRoot(repoRoot)).
		Str("branch", branch).
		Int("min_words", settings.MinWords).
		Int("max_words", settings.MaxWords).
		Str("provider", settings.Provider).
		Str("model", settings.Model).
		Str("strategy", settings.Strategy).
		Int("diff_bytes", len(in.Diff)).
		Msg("generating")

	return runInteractiveLoop(ctx, cmd, repoRoot, gen, opts, conventional.New(settings.MaxHeaderLength).WithWordBounds(settings.MinWords, settings.MaxWords))
}

func buildLoop(root *RootOptions, creds config.Credentials, s config.Settings, popts prompt.Options) (*engine.Loop, error) {
	p, err := root.Registry.New(s.Provider, creds, s.Timeout)
	if err != nil {
		return nil, err
	}
	strategy, err := prompt.Lookup(s.Strategy)
	if err != nil {
		return nil, err
	}
	return engine.New(p, engineConfig(s, strategy, popts),
		engine.WithLogger(root.log),
		engine.WithBackoff(newBackOff),
	), nil
}

func runInteractiveLoop(ctx context.Context, cmd *cobra.Command, repoRoot string, gen generator, opts *generateOptions, v conventional.Validator) error {
	out := cmd.OutOrStdout()
	for {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = " Generating commit message..."
		s.Start()
		res := gen(ctx)
		s.Stop()

		if !res.Success {
			return generationFailed(res)
		}
		if res.FallbackUsed {
			fmt.Fprintf(cmd.ErrOrStderr(), "Primary target failed (%s), used fallback.\n", res.PrimaryReason)
		}
		commitMsg := res.Message

		if opts.print {
			fmt.Fprintln(out, commitMsg)
			return nil
		}
		if opts.yes {
			return apply(ctx, out, repoRoot, opts.hookFile, commitMsg)
		}

		regenerate := false
		for !regenerate {
			action, err := confirmCommitInteractive(out, commitMsg, res)
			if err != nil {
				return err
			}

			switch action {
			case ActionCommit:
				return apply(ctx, out, repoRoot, opts.hookFile, commitMsg)

			case ActionEdit:
				edited, err := editCommitMessageInteractive(commitMsg)
				if err != nil {
					return err
				}
				verdict := v.Validate(edited)
				if !verdict.Accepted {
					fmt.Fprintf(out, "Edited message is not a valid Conventional Commit (%s: %s), keeping the previous one.\n", verdict.Rule, verdict.Detail)
					continue
				}
				commitMsg = verdict.Message

			case ActionRegenerate:
				fmt.Fprintln(out, "Regenerating...")
				regenerate = true

			case ActionCancel:
				fmt.Fprintln(out, "Cancelled.")
				if opts.hookFile != "" {
					return NewExitError(ExitFailure, "commit cancelled by user")
				}
				return nil
			}
		}
	}
}

func apply(ctx context.Context, out io.Writer, repoRoot, hookFile, msg string) error {
	if hookFile != "" {
		if err := os.WriteFile(hookFile, []byte(msg+"\n"), 0644); err != nil {
			return fmt.Errorf("write hook file: %w", err)
		}
		fmt.Fprintln(out, "Message generated for git hook.")
		return nil
	}
	return gitx.Commit(ctx, repoRoot, msg)
}

func generationFailed(res engine.Result) error {
	msg := fmt.Sprintf("no valid commit message after %d attempts (%s)", len(res.Attempts), res.Reason)
	if res.Detail != "" {
		msg += ": " + res.Detail
	}
	return NewExitError(ExitFailure, msg)
}
