// Package httpd implements the admin API server command.
package httpd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ideaminer/cmd/common"
	"ideaminer/internal/api"
)

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the admin API server",
		Long:  "Starts the admin HTTP API together with the pipeline scheduler so manual triggers and scheduled runs share one process.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			app, err := common.Setup(cfgFile, debug)
			if err != nil {
				return err
			}
			defer app.Close()

			sched := app.NewScheduler(app.NewOrchestrator())
			if app.Cfg.Schedule.Enabled {
				if err := sched.Start(cmd.Context()); err != nil {
					return err
				}
				defer sched.Stop()
			}

			router := api.SetupRouter(api.RouterParams{
				Trigger:  sched,
				Staging:  app.Staging,
				Migrator: app.NewEngine(),
				Runs:     app.Runs,
				Logger:   app.Log,
			})
			server := api.NewServer(app.Cfg.Server, router, app.Log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
				app.Log.Info("shutdown signal received")
				return server.Shutdown(context.Background())
			}
		},
	}
}
