// Package scheduler implements the long-running scheduler daemon command.
package scheduler

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ideaminer/cmd/common"
)

// Command returns the scheduler daemon command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the pipeline scheduler daemon",
		Long:  "Starts the cron-driven scheduler: hourly due checks, the daily sweep, the retry sweep and retention cleanup.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			app, err := common.Setup(cfgFile, debug)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Cfg.Schedule.Enabled {
				app.Log.Warn("scheduling is disabled in configuration, exiting")
				return nil
			}

			sched := app.NewScheduler(app.NewOrchestrator())
			if err := sched.Start(cmd.Context()); err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			app.Log.Info("shutdown signal received")
			sched.Stop()

			return nil
		},
	}
}
