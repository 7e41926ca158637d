// Package scrape implements the one-shot pipeline command.
package scrape

import (
	"fmt"

	"github.com/spf13/cobra"

	"ideaminer/cmd/common"
)

// Command returns the scrape command.
func Command() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the fetch, transform and stage pipeline once",
		Long:  "Runs the full pipeline for all enabled sources, or a single source with --source, then exits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			app, err := common.Setup(cfgFile, debug)
			if err != nil {
				return err
			}
			defer app.Close()

			orch := app.NewOrchestrator()
			ctx := cmd.Context()

			if sourceName != "" {
				for i := range app.Cfg.Scraping.Sources {
					src := &app.Cfg.Scraping.Sources[i]
					if src.Name == sourceName {
						run, runErr := orch.RunOne(ctx, src)
						if runErr != nil {
							return runErr
						}
						cmd.Printf("source %s: fetched=%d transformed=%d staged=%d\n",
							run.SourceName, run.Fetched, run.Transformed, run.Staged)
						return nil
					}
				}
				return fmt.Errorf("unknown source %q", sourceName)
			}

			runs := orch.RunAll(ctx, app.Cfg.Scraping.Sources)
			for _, run := range runs {
				cmd.Printf("source %s: status=%s fetched=%d transformed=%d staged=%d\n",
					run.SourceName, run.Status, run.Fetched, run.Transformed, run.Staged)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "run a single source by name")

	return cmd
}
