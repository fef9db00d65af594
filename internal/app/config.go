package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
)

func newConfigCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "config",
		Short:         "Edit the config file interactively",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			updated, err := runConfigInteractive(cfg, root.ConfigPath, root.Registry.Names(), prompt.Names())
			if err != nil {
				return err
			}
			if err := config.Save(updated, root.ConfigPath); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", root.ConfigPath)
			return nil
		},
	}
	cmd.AddCommand(newConfigShowCommand(root))
	return cmd
}

func newConfigShowCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the config file with secrets masked",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			cfg.Credentials = maskCredentials(cfg.Credentials)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func maskCredentials(c config.Credentials) config.Credentials {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.OpenAIKey = mask(c.OpenAIKey)
	c.AnthropicKey = mask(c.AnthropicKey)
	c.GeminiKey = mask(c.GeminiKey)
	c.GroqKey = mask(c.GroqKey)
	return c
}
