package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meetsync/triage/internal/resolution"
)

var (
	resolveType     string
	resolveIssue    string
	resolveAnalysis string
	resolveNotes    string
	resolveForce    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <task-id>",
	Short: "Record a resolution decision for a task",
	Long: `Record how a task's duplicate analysis was resolved. Resolving the
same task with the same decision is idempotent; a different decision fails
unless --force is given, which supersedes the old record and audit-logs the
override.

Example:
  triage resolve task-1 --type merge --issue WEB-100
  triage resolve task-1 --type create-anyway --force`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		typ, err := parseResolutionType(resolveType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		eng := mustEngine()
		defer eng.Close()

		rec, err := eng.Resolve(context.Background(), &resolution.Request{
			TaskID:      args[0],
			AnalysisID:  resolveAnalysis,
			Type:        typ,
			ChosenIssue: resolveIssue,
			Actor:       resolveActor(),
			Notes:       resolveNotes,
			Force:       resolveForce,
		})
		if err != nil {
			var conflict *resolution.ConflictError
			if errors.As(err, &conflict) {
				red := color.New(color.FgRed).SprintFunc()
				fmt.Fprintf(os.Stderr, "%s %v\n", red("Conflict:"), conflict)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		if rec.ChosenIssue != "" {
			fmt.Printf("%s %s resolved as %s against %s\n", green("✓"), rec.TaskID, rec.Type, rec.ChosenIssue)
		} else {
			fmt.Printf("%s %s resolved as %s\n", green("✓"), rec.TaskID, rec.Type)
		}
	},
}

func parseResolutionType(s string) (resolution.Type, error) {
	switch s {
	case "skip":
		return resolution.TypeSkip, nil
	case "merge":
		return resolution.TypeMerge, nil
	case "link":
		return resolution.TypeLink, nil
	case "create-anyway", "create":
		return resolution.TypeCreateAnyway, nil
	default:
		return "", fmt.Errorf("invalid resolution type %q (expected skip, merge, link, or create-anyway)", s)
	}
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveType, "type", "t", "", "resolution type: skip, merge, link, create-anyway (required)")
	resolveCmd.Flags().StringVar(&resolveIssue, "issue", "", "existing issue key (required for merge/link)")
	resolveCmd.Flags().StringVar(&resolveAnalysis, "analysis", "", "analysis ID this decision is based on")
	resolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "free-form notes on the decision")
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "supersede an existing conflicting resolution")
	resolveCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(resolveCmd)
}
