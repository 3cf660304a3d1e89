package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	snapshotPath string
	dbPath       string
	weightsPath  string
	actor        string
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Duplicate detection and resolution for extracted tasks",
	Long: `Triage scores extracted tasks against a project's existing issues,
flags likely duplicates, cross-references tasks within a batch, and records
resolution decisions.

Configuration comes from TRIAGE_* environment variables, overridable with
flags. The tracker is read from a local snapshot file (see 'triage init').`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "tracker snapshot file (default: .triage/snapshot.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "resolution database path (default: $TRIAGE_DB_PATH or .triage/triage.db)")
	rootCmd.PersistentFlags().StringVar(&weightsPath, "weights", "", "YAML file overriding scoring weights")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "actor recorded on resolutions (default: $USER)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
