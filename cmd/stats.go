package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/spf13/cobra"
)

func newStatsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stage totals and the conversion rate",
		RunE: app.run(true, func(cmd *cobra.Command, _ []string) error {
			stats := app.service.Stats()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STAGE\tRECORDS\tTOTAL")
			for _, stage := range stats.Stages {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", stage.Stage, stage.Count, domain.Money(stage.TotalCents))
			}
			_, _ = fmt.Fprintf(tw, "all\t%d\t%s\n", stats.Records, domain.Money(stats.TotalCents))
			if err := tw.Flush(); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "conversion: %.1f%%  overdue: %d\n", stats.ConversionRate*100, stats.Overdue)
			return err
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stats as JSON")

	return cmd
}
