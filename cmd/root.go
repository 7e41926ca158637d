// Package cmd implements the command-line interface for the idea pipeline.
package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ideaminer/cmd/httpd"
	"ideaminer/cmd/migrate"
	"ideaminer/cmd/review"
	cmdscheduler "ideaminer/cmd/scheduler"
	"ideaminer/cmd/scrape"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ideaminer",
	Short: "Scrapes project ideas, rewrites them and stages them for review",
	Long: `ideaminer collects project listings from configured sources, rewrites
them into original idea variations, stages them for human review and
migrates approved ideas to production in audited batches.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so configuration sees its variables.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ideaminer version %s\n", version)
		},
	})

	rootCmd.AddCommand(scrape.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(review.Command())
	rootCmd.AddCommand(httpd.Command())
}
