package cmd

import (
	"fmt"
	"log/slog"

	"github.com/bnema/dealer-pipeline/internal/adapters/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(app *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import customer records from a YAML or TOML file",
		Long:  "Import customer records into the repository. Records the repository already holds are left untouched.",
		RunE: app.run(false, func(cmd *cobra.Command, _ []string) error {
			records, err := seed.Load(path, app.now())
			if err != nil {
				return err
			}

			imported, skipped := 0, 0
			for _, record := range records {
				result, err := app.repo.Save(cmd.Context(), record)
				if err != nil {
					return fmt.Errorf("save seed record %s: %w", record.ID, err)
				}
				if !result.OK {
					skipped++
					app.logger.Info("seed record already stored",
						slog.String("record", string(record.ID)),
						slog.Int64("stored_version", result.Conflict.Version),
					)
					continue
				}
				imported++
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, skipped %d\n", imported, skipped)
			return err
		}),
	}

	cmd.Flags().StringVar(&path, "file", "", "Seed file (.yaml, .yml or .toml)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
