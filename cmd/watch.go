package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *app) *cobra.Command {
	var (
		assignee string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Redraw the board whenever the record repository changes",
		RunE: app.run(true, func(cmd *cobra.Command, _ []string) error {
			feed, ok := app.repo.(ports.ChangeFeed)
			if !ok {
				return fmt.Errorf("repository backend %q does not support watching", app.cfg.Backend)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			redraw := func(domain.PipelineSnapshot) {
				if err := writeBoard(cmd, app, app.service.Board(domain.UserID(assignee)), false); err != nil {
					app.logger.Warn("redraw board failed", slog.Any("error", err))
				}
			}
			redraw(app.service.Snapshot())
			unsubscribe := app.service.Subscribe(redraw)
			defer unsubscribe()

			err := feed.Watch(ctx, func(records []domain.CustomerRecord) {
				if err := app.service.ApplyRemote(records); err != nil {
					app.logger.Warn("apply remote records failed", slog.Any("error", err))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("watch records: %w", err)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&assignee, "assignee", "", "Only show records assigned to this user")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop watching after this long (0 watches until interrupted)")

	return cmd
}
