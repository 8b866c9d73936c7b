package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dp",
		Short:         "Dealer pipeline (dp): track customers through the sales pipeline",
		Long:          "dp tracks dealership customers as they move from prospect to sold or lost, keeps a local pipeline in sync with the record repository, and reports stage totals and conversion.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newBoardCmd(app),
		newMoveCmd(app),
		newReopenCmd(app),
		newStatsCmd(app),
		newOverdueCmd(app),
		newSeedCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}
