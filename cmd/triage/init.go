package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meetsync/triage/internal/storage"
)

const exampleSnapshot = `# Tracker snapshot used for duplicate detection.
# Regenerate this from your issue tracker export.
projects:
  WEB:
    name: Web Frontend
    schema: classic
    epics:
      - key: WEB-10
        summary: Login and authentication
    sprints:
      - id: "1"
        name: Sprint 1
        active: true
    component_owners:
      auth: alice
    issues:
      - key: WEB-100
        summary: Fix login page timeout
        description: Users hit a timeout error on the login page
        status: open
        assignee: alice
        updated_at: 2026-08-01T00:00:00Z
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a .triage directory in the current project",
	Long: `Initialize duplicate detection for the current directory.

This creates:
  - .triage/ directory
  - .triage/triage.db (SQLite database for resolutions and audit)
  - .triage/snapshot.yaml (example tracker snapshot, if missing)`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()

		path := dbPath
		if path == "" {
			path = ".triage/triage.db"
		}
		store, err := storage.New(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		store.Close()
		fmt.Printf("%s created %s\n", green("✓"), path)

		snapPath := snapshotPath
		if snapPath == "" {
			snapPath = defaultSnapshotPath
		}
		if _, err := os.Stat(snapPath); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(snapPath), 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(snapPath, []byte(exampleSnapshot), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s created %s (edit it with your tracker export)\n", green("✓"), snapPath)
		} else {
			fmt.Printf("  %s already exists, leaving it untouched\n", snapPath)
		}

		fmt.Println("\nNext steps:")
		fmt.Println("  triage analyze --project WEB --summary \"...\"")
		fmt.Println("  triage review")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
