// Package app wires the commitlab commands.
package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/providers"
)

// RootOptions holds global flags and the collaborators every command uses.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json"
	ConfigPath string

	Registry *providers.Registry
	Getenv   func(string) string

	log zerolog.Logger
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Registry: providers.Default(), Getenv: os.Getenv})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commitlab",
		Short: "Generate and evaluate Conventional Commits messages with LLMs",
		Long: `commitlab writes commit messages for staged changes with an LLM provider,
validates them against the Conventional Commits grammar and retries with
feedback until one passes. The experiment command runs many
provider/model/strategy configurations over a corpus of diffs and ranks them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.log = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath(), "config file")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newExperimentCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newModelsCommand(opts))
	cmd.AddCommand(newDumpPromptCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newInstallHookCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
