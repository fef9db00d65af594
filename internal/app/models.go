package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/ai"
	"github.com/hoanghonghuy/commitlab/internal/config"
)

func newModelsCommand(root *RootOptions) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:           "models",
		Short:         "List the models a provider offers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.Load(root.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			name := config.ResolveString(provider, root.Getenv("COMMITLAB_PROVIDER"), file.Provider, config.DefaultProvider)
			creds := config.CredentialsFromEnv().Merge(file.Credentials)

			p, err := root.Registry.New(name, creds, config.DefaultTimeout)
			if err != nil {
				return WrapExitError(ExitCommandError, "provider", err)
			}
			lister, ok := p.(ai.ModelLister)
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("provider %s cannot list models", name))
			}
			models, err := lister.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if root.Format == "json" {
				return json.NewEncoder(out).Encode(models)
			}
			for _, m := range models {
				fmt.Fprintln(out, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name")
	return cmd
}
