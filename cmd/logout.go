package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/limitwatch/internal/domain"
)

func newLogoutCmd(app *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout [account]",
		Short: "Remove an account and its stored credential",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				removed, err := app.service.LogoutAll(cmd.Context())
				if err != nil {
					return err
				}
				for _, account := range removed {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s (%s)\n", account.DisplayName(), account.Kind)
				}
				if len(removed) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No accounts to log out")
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("%w: pass an account ID or alias, or --all", domain.ErrInvalidInput)
			}

			account, err := app.service.Logout(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s (%s)\n", account.DisplayName(), account.Kind)
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every account")

	return cmd
}
