package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meetsync/triage/internal/review"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively resolve pending analyses",
	Long: `Walk the queue of analyzed-but-unresolved tasks and record a
decision for each. Within the session:

  skip            drop the task
  merge [issue]   fold it into an existing issue (default: best match)
  link [issue]    keep it but link to an existing issue
  create          create a new issue despite the duplicate signal
  show            reprint the analysis
  next            defer the task
  quit            end the session`,
	Run: func(cmd *cobra.Command, args []string) {
		eng := mustEngine()
		defer eng.Close()

		session, err := review.New(&review.Config{
			Engine: eng,
			Actor:  resolveActor(),
			Limit:  reviewLimit,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := session.Run(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum tasks to review in one session")
	rootCmd.AddCommand(reviewCmd)
}
