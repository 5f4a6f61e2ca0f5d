package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAliasCmd(app),
		newAccountGroupCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.service.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured, run `lw login <provider>` first")
				return err
			}

			for _, account := range accounts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					account.Kind, account.ID, orDash(account.Alias), orDash(account.Group))
			}

			return nil
		},
	}
}

func newAccountAliasCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <account> <alias>",
		Short: "Set or clear an account alias",
		Long:  "Set an alias for an account. An empty alias clears it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.service.SetAlias(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if account.Alias == "" {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared alias for %s\n", account.ID)
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set alias %q for %s\n", account.Alias, account.ID)
			return err
		},
	}
}

func newAccountGroupCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "group <account> <group>",
		Short: "Assign an account to a group",
		Long:  "Assign an account to a group. Passing \"none\" clears the group.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.service.SetGroup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			if account.Group == "" {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared group for %s\n", account.ID)
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to group %q\n", account.ID, account.Group)
			return err
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
