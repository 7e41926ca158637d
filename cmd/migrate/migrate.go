// Package migrate implements the migration CLI commands.
package migrate

import (
	"strconv"

	"github.com/spf13/cobra"

	"ideaminer/cmd/common"
	"ideaminer/internal/domain"
	"ideaminer/internal/migration"
)

const defaultHistoryLimit = 20

// Command returns the migrate command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move approved staged ideas to production",
	}

	cmd.AddCommand(runCommand())
	cmd.AddCommand(statusCommand())
	cmd.AddCommand(rollbackCommand())
	cmd.AddCommand(listCommand())

	return cmd
}

func setup(cmd *cobra.Command) (*common.App, *migration.Engine, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	app, err := common.Setup(cfgFile, debug)
	if err != nil {
		return nil, nil, err
	}

	return app, app.NewEngine(), nil
}

func printBatch(cmd *cobra.Command, batch *domain.MigrationBatch) {
	cmd.Printf("batch %s: migrated=%d skipped=%d failed=%d successful=%t\n",
		batch.ID, batch.Migrated, batch.Skipped, batch.Failed, batch.Successful)
	for _, w := range batch.Warnings {
		cmd.Printf("  warning: %s\n", w)
	}
	for _, e := range batch.Errors {
		cmd.Printf("  error: %s\n", e)
	}
}

func runCommand() *cobra.Command {
	var (
		batchSize int
		ids       []int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate approved items in one batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var batch *domain.MigrationBatch
			if len(ids) > 0 {
				batch, err = engine.MigrateSpecific(cmd.Context(), ids)
			} else {
				batch, err = engine.MigrateApproved(cmd.Context(), batchSize)
			}
			if err != nil {
				return err
			}

			printBatch(cmd, batch)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the configured batch size")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "migrate only these staged item ids")

	return cmd
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show the state of a migration batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			state, batch, err := engine.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cmd.Printf("batch %s: state=%s\n", args[0], state)
			if batch != nil {
				printBatch(cmd, batch)
			}

			return nil
		},
	}
}

func rollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <batch-id>",
		Short: "Undo a migration batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := engine.Rollback(cmd.Context(), args[0]); err != nil {
				return err
			}

			cmd.Printf("batch %s rolled back\n", args[0])
			return nil
		},
	}
}

func listCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent migration batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			batches, err := engine.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			for i := range batches {
				b := &batches[i]
				rolledBack := ""
				if b.RolledBack {
					rolledBack = " (rolled back)"
				}
				cmd.Printf("%s  state=%s migrated=%s skipped=%s failed=%s%s\n",
					b.ID, b.State(),
					strconv.Itoa(b.Migrated), strconv.Itoa(b.Skipped), strconv.Itoa(b.Failed),
					rolledBack)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "number of batches to list")

	return cmd
}
