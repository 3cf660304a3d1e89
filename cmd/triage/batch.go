package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/types"
)

var (
	batchProject         string
	batchIncludeResolved bool
	batchJSON            bool
)

// batchTask is the YAML shape of one task in a batch file
type batchTask struct {
	ID          string `yaml:"id"`
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`
	Assignee    string `yaml:"assignee"`
	EpicKey     string `yaml:"epic_key"`
	Component   string `yaml:"component"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <tasks-file>",
	Short: "Analyze a batch of tasks with cross-referencing",
	Long: `Analyze every task in a YAML file against the project's existing
issues and against each other. Tasks that duplicate each other within the
batch are flagged even when the tracker has no matching issues.

The tasks file is a YAML list:
  - id: task-1
    summary: Fix login page timeout
    description: Users hit a timeout error on the login page
  - id: task-2
    summary: Login page times out`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tasks, err := loadTasks(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		eng := mustEngine()
		defer eng.Close()

		batch, err := eng.DetectBatch(context.Background(), tasks, batchProject, analysis.Options{
			IncludeResolved: batchIncludeResolved,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if batchJSON {
			out, _ := json.MarshalIndent(batch, "", "  ")
			fmt.Println(string(out))
			return
		}
		printBatchReport(batch)
	},
}

func loadTasks(path string) ([]*types.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks file %s: %w", path, err)
	}
	var raw []batchTask
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tasks file %s: %w", path, err)
	}

	tasks := make([]*types.Task, 0, len(raw))
	for i, bt := range raw {
		id := bt.ID
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		tasks = append(tasks, &types.Task{
			ID:          id,
			Summary:     bt.Summary,
			Description: bt.Description,
			ProjectKey:  batchProject,
			Assignee:    bt.Assignee,
			EpicKey:     bt.EpicKey,
			Component:   bt.Component,
		})
	}
	return tasks, nil
}

func printBatchReport(batch *analysis.BatchAnalysis) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Batch Analysis ==="))
	for _, a := range batch.Analyses {
		marker := "  "
		if a.RecommendedAction == analysis.ActionLikelyDuplicate {
			marker = red("! ")
		} else if a.RecommendedAction == analysis.ActionReviewRequired {
			marker = yellow("? ")
		}
		best := ""
		if a.BestMatch != nil {
			best = fmt.Sprintf(" → %s (%.0f%%)", a.BestMatch.Issue.Key, a.BestMatch.OverallScore*100)
		}
		fmt.Printf("%s%-10s %-18s %s%s\n", marker, a.Task.ID, a.RecommendedAction, a.Task.Summary, gray(best))
	}

	if len(batch.CrossReferences) > 0 {
		fmt.Printf("\n%s\n", yellow("In-batch duplicates:"))
		for _, ref := range batch.CrossReferences {
			fmt.Printf("  %s ↔ %s (%.0f%%, %s)\n",
				ref.TaskA, ref.TaskB, ref.Similarity.OverallScore*100, ref.Similarity.MatchClass)
		}
	}
	if len(batch.Groups) > 0 {
		fmt.Printf("\n%s\n", yellow("Duplicate groups:"))
		for i, g := range batch.Groups {
			fmt.Printf("  %d. %v\n", i+1, g)
		}
	}

	s := batch.Summary
	fmt.Printf("\n%s %d task(s), %d with likely duplicates, %d cross-reference(s), %d group(s), %d high-confidence\n",
		gray("Summary:"), s.TotalTasks, s.TasksWithDuplicates, s.CrossReferences, s.DuplicateGroups, s.HighConfidence)
	fmt.Printf("%s\n", gray(fmt.Sprintf("batch %s completed in %dms", batch.ID, batch.ElapsedMs)))
}

func init() {
	batchCmd.Flags().StringVarP(&batchProject, "project", "p", "", "project key (required)")
	batchCmd.Flags().BoolVar(&batchIncludeResolved, "include-resolved", false, "include resolved/closed issues in the search")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the raw batch analysis as JSON")
	batchCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(batchCmd)
}
