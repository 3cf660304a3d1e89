package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/types"
)

var (
	analyzeProject         string
	analyzeSummary         string
	analyzeDescription     string
	analyzeAssignee        string
	analyzeEpic            string
	analyzeComponent       string
	analyzeTaskID          string
	analyzeIncludeResolved bool
	analyzeMaxResults      int
	analyzeJSON            bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one task for duplicates",
	Long: `Score a task against the project's existing issues and print the
ranked similarity results with a recommended action.

Example:
  triage analyze --project WEB --summary "Fix login page timeout" \
    --description "Users hit a timeout error on the login page"`,
	Run: func(cmd *cobra.Command, args []string) {
		eng := mustEngine()
		defer eng.Close()

		taskID := analyzeTaskID
		if taskID == "" {
			taskID = "adhoc-1"
		}
		task := &types.Task{
			ID:          taskID,
			Summary:     analyzeSummary,
			Description: analyzeDescription,
			ProjectKey:  analyzeProject,
			Assignee:    analyzeAssignee,
			EpicKey:     analyzeEpic,
			Component:   analyzeComponent,
		}

		a, err := eng.DetectDuplicates(context.Background(), task, analyzeProject, analysis.Options{
			IncludeResolved: analyzeIncludeResolved,
			MaxResults:      analyzeMaxResults,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if analyzeJSON {
			out, _ := json.MarshalIndent(a, "", "  ")
			fmt.Println(string(out))
			return
		}
		printAnalysisReport(a)
	},
}

func printAnalysisReport(a *analysis.DuplicateAnalysis) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Duplicate Analysis ==="))
	fmt.Printf("Task:           %s\n", a.Task.Summary)
	fmt.Printf("Project:        %s\n", a.ProjectKey)
	fmt.Printf("Searched:       %d candidate(s)\n", a.TotalSearched)
	if a.Partial {
		fmt.Printf("%s\n", yellow("Partial result: computed from cached candidates only"))
	}

	action := green(string(a.RecommendedAction))
	if a.RecommendedAction == analysis.ActionLikelyDuplicate {
		action = red(string(a.RecommendedAction))
	} else if a.RecommendedAction == analysis.ActionReviewRequired {
		action = yellow(string(a.RecommendedAction))
	}
	fmt.Printf("Recommendation: %s\n", action)
	fmt.Printf("%s\n\n", gray(a.Reasoning))

	if len(a.Results) > 0 {
		fmt.Printf("%s\n", yellow("Similar issues:"))
		for i, r := range a.Results {
			fmt.Printf("  %d. %-10s %5.1f%%  %-13s conf %.2f  %s\n",
				i+1, r.Issue.Key, r.OverallScore*100, r.MatchClass, r.Confidence, gray(r.Issue.Summary))
			if len(r.MatchReasons) > 0 {
				fmt.Printf("     %s\n", gray(fmt.Sprintf("reasons: %v", r.MatchReasons)))
			}
		}
		fmt.Println()
	}

	if len(a.EpicSuggestions) > 0 {
		fmt.Printf("%s\n", yellow("Epic suggestions:"))
		for _, s := range a.EpicSuggestions {
			fmt.Printf("  %-10s %5.1f%%  %s\n", s.EpicKey, s.Score*100, gray(s.Summary))
		}
		fmt.Println()
	}

	fmt.Printf("%s\n", gray(fmt.Sprintf("analysis %s completed in %dms", a.ID, a.ElapsedMs)))
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProject, "project", "p", "", "project key (required)")
	analyzeCmd.Flags().StringVarP(&analyzeSummary, "summary", "s", "", "task summary (required)")
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "task description")
	analyzeCmd.Flags().StringVar(&analyzeAssignee, "assignee", "", "suggested assignee")
	analyzeCmd.Flags().StringVar(&analyzeEpic, "epic", "", "epic key the task belongs to")
	analyzeCmd.Flags().StringVar(&analyzeComponent, "component", "", "component the task touches")
	analyzeCmd.Flags().StringVar(&analyzeTaskID, "task-id", "", "stable task identifier (default: adhoc-1)")
	analyzeCmd.Flags().BoolVar(&analyzeIncludeResolved, "include-resolved", false, "include resolved/closed issues in the search")
	analyzeCmd.Flags().IntVar(&analyzeMaxResults, "max-results", 0, "candidate pool bound (default: engine config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw analysis as JSON")
	analyzeCmd.MarkFlagRequired("project")
	analyzeCmd.MarkFlagRequired("summary")
	rootCmd.AddCommand(analyzeCmd)
}
