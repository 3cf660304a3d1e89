package main

import (
	"fmt"
	"os"

	"github.com/meetsync/triage/internal/engine"
	"github.com/meetsync/triage/internal/search"
)

const defaultSnapshotPath = ".triage/snapshot.yaml"

// openEngine builds the engine from environment and flags
func openEngine() (*engine.Engine, error) {
	cfg, err := engine.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if weightsPath != "" {
		weights, err := engine.LoadWeights(weightsPath)
		if err != nil {
			return nil, err
		}
		cfg.Weights = weights
	}

	path := snapshotPath
	if path == "" {
		path = defaultSnapshotPath
	}
	snapshot, err := search.LoadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("load tracker snapshot (run 'triage init' first?): %w", err)
	}

	return engine.New(cfg, snapshot, snapshot)
}

// mustEngine opens the engine or exits with an error
func mustEngine() *engine.Engine {
	eng, err := openEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return eng
}

// resolveActor picks the actor for resolution commands
func resolveActor() string {
	if actor != "" {
		return actor
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "user"
}
