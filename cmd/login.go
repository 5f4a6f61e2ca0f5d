package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

func newLoginCmd(app *app) *cobra.Command {
	var apiKey string
	var organization string
	var services []string

	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Sign in to a provider account",
		Long: "Sign in to a provider account and store its credential.\n\n" +
			"OpenAI and Google open a browser OAuth flow, GitHub Copilot runs a\n" +
			"device code flow, and OpenRouter and Chutes take an API key via\n" +
			"--api-key. Logging in to an account that already exists replaces\n" +
			"its credential and keeps its alias and group.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseProviderKind(args[0])
			if err != nil {
				return err
			}

			account, err := app.service.Login(cmd.Context(), kind, ports.AuthParams{
				APIKey:       apiKey,
				Organization: organization,
				Services:     services,
				Out:          cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", account.Kind, account.DisplayName())
			return err
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for key-based providers")
	cmd.Flags().StringVar(&organization, "org", "", "Organization for providers that scope quotas per org")
	cmd.Flags().StringSliceVar(&services, "services", nil, "Provider services to fetch (default: all)")

	return cmd
}
