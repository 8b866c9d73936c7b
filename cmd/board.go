package cmd

import (
	"fmt"

	boardadapter "github.com/bnema/dealer-pipeline/internal/adapters/render/board"
	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/spf13/cobra"
)

func newBoardCmd(app *app) *cobra.Command {
	var (
		assignee string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the pipeline as a board with one column per stage",
		RunE: app.run(true, func(cmd *cobra.Command, _ []string) error {
			snapshot := app.service.Board(domain.UserID(assignee))
			return writeBoard(cmd, app, snapshot, asJSON)
		}),
	}

	cmd.Flags().StringVar(&assignee, "assignee", "", "Only show records assigned to this user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the board as JSON")

	return cmd
}

func writeBoard(cmd *cobra.Command, app *app, snapshot domain.PipelineSnapshot, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), boardJSON{
			Revision:       snapshot.Revision,
			TotalCents:     int64(snapshot.Total()),
			ConversionRate: snapshot.ConversionRate(),
			Records:        toRecordsJSON(snapshot.Records),
		})
	}

	rendered, err := app.boardRenderer(snapshot, boardadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render board: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
