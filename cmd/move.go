package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/dealer-pipeline/internal/application"
	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/spf13/cobra"
)

const defaultSyncWait = 30 * time.Second

func newMoveCmd(app *app) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "move <record-id> <stage>",
		Short: "Move a record to another stage",
		Long:  "Move a record to another pipeline stage (" + stageList() + "). Sold and lost are final until reopened.",
		Args:  cobra.ExactArgs(2),
		RunE: app.run(true, func(cmd *cobra.Command, args []string) error {
			stage, err := domain.ParseStage(args[1])
			if err != nil {
				return err
			}

			inflight, err := app.service.Move(cmd.Context(), domain.RecordID(args[0]), stage, app.cfg.Actor)
			if err != nil {
				return err
			}

			return reportOutcome(cmd, inflight, wait)
		}),
	}

	cmd.Flags().DurationVar(&wait, "wait", defaultSyncWait, "How long to wait for the repository to confirm the change")

	return cmd
}

func newReopenCmd(app *app) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "reopen <record-id>",
		Short: "Reopen a sold or lost record as a lead",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(true, func(cmd *cobra.Command, args []string) error {
			inflight, err := app.service.Reopen(cmd.Context(), domain.RecordID(args[0]), app.cfg.Actor)
			if err != nil {
				return err
			}

			return reportOutcome(cmd, inflight, wait)
		}),
	}

	cmd.Flags().DurationVar(&wait, "wait", defaultSyncWait, "How long to wait for the repository to confirm the change")

	return cmd
}

// reportOutcome waits for the background save of a transition and prints how
// it was resolved. A change refused or left unsynced is returned as an error.
func reportOutcome(cmd *cobra.Command, inflight *application.Inflight, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()

	pending := inflight.Pending()
	outcome, err := waitWithSpinner(ctx, cmd.ErrOrStderr(), inflight)
	if err != nil {
		return fmt.Errorf("wait for sync of %s: %w", pending.RecordID, err)
	}

	out := cmd.OutOrStdout()
	switch outcome.Kind {
	case application.OutcomeConfirmed:
		_, err = fmt.Fprintf(out, "%s: %s -> %s (version %d)\n",
			pending.RecordID, pending.FromStage, pending.ToStage, outcome.Record.Version)
		return err
	case application.OutcomeConflictResolved:
		_, err = fmt.Fprintf(out, "%s: updated by someone else, kept %s (version %d)\n",
			pending.RecordID, outcome.Record.Stage, outcome.Record.Version)
		return err
	case application.OutcomeSuperseded:
		_, err = fmt.Fprintf(out, "%s: superseded by a newer change\n", pending.RecordID)
		return err
	case application.OutcomeRolledBack:
		return fmt.Errorf("%s: change rolled back: %w", pending.RecordID, outcome.Err)
	default:
		return outcome.Err
	}
}

func stageList() string {
	stages := domain.Stages()
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, string(stage))
	}
	return strings.Join(names, ", ")
}
