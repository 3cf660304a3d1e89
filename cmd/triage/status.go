package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meetsync/triage/internal/resolution"
)

var historyLimit int

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task's resolution status and audit trail",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng := mustEngine()
		defer eng.Close()
		ctx := context.Background()

		gray := color.New(color.FgHiBlack).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		rec, err := eng.ResolutionStatus(ctx, args[0])
		if errors.Is(err, resolution.ErrNotFound) {
			fmt.Printf("%s is unresolved\n", args[0])
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		} else {
			fmt.Printf("%s resolved as %s by %s at %s\n",
				rec.TaskID, rec.Type, rec.Actor, rec.ResolvedAt.Format(time.RFC3339))
			if rec.ChosenIssue != "" {
				fmt.Printf("  against %s\n", rec.ChosenIssue)
			}
			if rec.Notes != "" {
				fmt.Printf("  %s\n", gray(rec.Notes))
			}
		}

		trail, err := eng.AuditTrail(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(trail) > 0 {
			fmt.Printf("\n%s\n", yellow("Audit trail:"))
			for _, e := range trail {
				fmt.Printf("  %s  %-10s %-8s %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Actor, gray(e.Detail))
			}
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent resolutions",
	Run: func(cmd *cobra.Command, args []string) {
		eng := mustEngine()
		defer eng.Close()

		records, err := eng.ResolutionHistory(context.Background(), historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("No resolutions recorded.")
			return
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, rec := range records {
			issue := ""
			if rec.ChosenIssue != "" {
				issue = " → " + rec.ChosenIssue
			}
			fmt.Printf("%s  %-12s %-14s%s %s\n",
				rec.ResolvedAt.Format("2006-01-02 15:04"), rec.TaskID, rec.Type, issue, gray("by "+rec.Actor))
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum resolutions to list")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}
