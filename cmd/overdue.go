package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOverdueCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List records whose follow-up date has passed",
		RunE: app.run(true, func(cmd *cobra.Command, _ []string) error {
			records := app.service.Overdue()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), toRecordsJSON(records))
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No overdue follow-ups.")
				return err
			}

			return writeRecordTable(cmd.OutOrStdout(), records, app.now())
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print overdue records as JSON")

	return cmd
}
