package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app, err := wireApp()
	if err != nil {
		return &cobra.Command{
			Use:           "lw",
			SilenceUsage:  true,
			SilenceErrors: false,
			RunE: func(_ *cobra.Command, _ []string) error {
				return err
			},
		}
	}

	return newRootCmdWithApp(app)
}

func newRootCmdWithApp(app *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lw",
		Short:         "limitwatch (lw): usage quotas and credits across AI provider accounts",
		Long:          "lw (limitwatch) fetches rate-limit windows, quotas, and credit balances from every AI provider account you are signed into and shows them side by side in the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
	}

	// Running the bare root is the same as running status, flags included.
	rootFlags := addStatusFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runStatus(cmd, app, rootFlags)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatusCmd(app),
		newLoginCmd(app),
		newLogoutCmd(app),
		newAccountCmd(app),
		newHistoryCmd(app),
		newExportCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
