// Package review implements the staging review CLI commands.
package review

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"ideaminer/cmd/common"
	"ideaminer/internal/domain"
)

const defaultListLimit = 50

// Command returns the review command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review staged ideas",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(decisionCommand("approve", domain.ReviewApproved))
	cmd.AddCommand(decisionCommand("reject", domain.ReviewRejected))
	cmd.AddCommand(summaryCommand())

	return cmd
}

func setup(cmd *cobra.Command) (*common.App, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return common.Setup(cfgFile, debug)
}

func listCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staged ideas pending review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := app.Staging.ListByReviewStatus(cmd.Context(), domain.ReviewPending, limit, offset)
			if err != nil {
				return err
			}

			for i := range items {
				item := &items[i]
				cmd.Printf("%d  [%s] rating=%d  %s\n", item.ID, item.SourceName, item.Rating, item.ProjectName)
				cmd.Printf("    %s\n", item.ShortDescription)
			}
			cmd.Printf("%d pending items\n", len(items))

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "number of items to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "listing offset")

	return cmd
}

func decisionCommand(use string, status domain.ReviewStatus) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   use + " <item-id>",
		Short: use + " a staged idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			reviewer := os.Getenv("USER")
			if reviewer == "" {
				reviewer = "cli"
			}

			var notesPtr *string
			if notes != "" {
				notesPtr = &notes
			}

			if err := app.Staging.SetReview(cmd.Context(), id, status, reviewer, notesPtr); err != nil {
				return err
			}

			cmd.Printf("item %d: %s\n", id, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "review notes")

	return cmd
}

func summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show staging area counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			sum, err := app.Staging.Summary(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("total=%d pending=%d approved=%d rejected=%d\n",
				sum.Total, sum.Pending, sum.Approved, sum.Rejected)
			cmd.Printf("not_migrated=%d migrated=%d failed=%d\n",
				sum.NotMigrated, sum.Migrated, sum.Failed)

			return nil
		},
	}
}
