// Package review implements the interactive resolution session: it walks
// the queue of unresolved analyses and records a decision for each.
package review

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/resolution"
)

// Engine is the slice of the duplicate engine the session needs
type Engine interface {
	PendingReview(ctx context.Context, limit int) ([]*analysis.DuplicateAnalysis, error)
	Resolve(ctx context.Context, req *resolution.Request) (*resolution.Record, error)
}

// Config holds review session configuration
type Config struct {
	Engine Engine
	Actor  string
	Limit  int
}

// Session is the interactive review loop
type Session struct {
	engine Engine
	actor  string
	limit  int
	rl     *readline.Instance
}

// New creates a review session
func New(cfg *Config) (*Session, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	actor := cfg.Actor
	if actor == "" {
		actor = "user"
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	return &Session{engine: cfg.Engine, actor: actor, limit: limit}, nil
}

// Run walks the pending review queue until it is empty or the user quits
func (s *Session) Run(ctx context.Context) error {
	pending, err := s.engine.PendingReview(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("load review queue: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("Nothing to review.")
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("triage> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	fmt.Printf("%d task(s) pending review. Commands: skip, merge <issue>, link <issue>, create, show, next, quit\n\n", len(pending))

	for _, a := range pending {
		if err := s.reviewOne(ctx, a); err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}
	}
	fmt.Println("Review queue empty.")
	return nil
}

// reviewOne prompts for a decision on one analysis. Returns io.EOF when the
// user quits the session.
func (s *Session) reviewOne(ctx context.Context, a *analysis.DuplicateAnalysis) error {
	printAnalysis(a)

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return err
		}
		done, err := s.handleCommand(ctx, a, strings.TrimSpace(line))
		if err != nil {
			if err == io.EOF {
				return err
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
			continue
		}
		if done {
			return nil
		}
	}
}

// handleCommand applies one command line to the analysis under review.
// Returns done=true when the session should move to the next task.
func (s *Session) handleCommand(ctx context.Context, a *analysis.DuplicateAnalysis, line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "skip", "s":
		return true, s.resolve(ctx, a, resolution.TypeSkip, "")
	case "merge", "m":
		if len(args) == 0 {
			return false, s.resolveAgainstBest(ctx, a, resolution.TypeMerge)
		}
		return true, s.resolve(ctx, a, resolution.TypeMerge, args[0])
	case "link", "l":
		if len(args) == 0 {
			return false, s.resolveAgainstBest(ctx, a, resolution.TypeLink)
		}
		return true, s.resolve(ctx, a, resolution.TypeLink, args[0])
	case "create", "c":
		return true, s.resolve(ctx, a, resolution.TypeCreateAnyway, "")
	case "show":
		printAnalysis(a)
		return false, nil
	case "next", "n":
		fmt.Println("Deferred.")
		return true, nil
	case "quit", "q", "exit":
		return false, io.EOF
	default:
		return false, fmt.Errorf("unknown command %q (try: skip, merge <issue>, link <issue>, create, show, next, quit)", cmd)
	}
}

// resolveAgainstBest targets the best match when merge/link is given
// without an issue key
func (s *Session) resolveAgainstBest(ctx context.Context, a *analysis.DuplicateAnalysis, typ resolution.Type) error {
	if a.BestMatch == nil {
		return fmt.Errorf("%s needs an issue key (no best match for this task)", typ)
	}
	return s.resolve(ctx, a, typ, a.BestMatch.Issue.Key)
}

func (s *Session) resolve(ctx context.Context, a *analysis.DuplicateAnalysis, typ resolution.Type, issue string) error {
	rec, err := s.engine.Resolve(ctx, &resolution.Request{
		TaskID:      a.Task.ID,
		AnalysisID:  a.ID,
		Type:        typ,
		ChosenIssue: issue,
		Actor:       s.actor,
	})
	if err != nil {
		return err
	}
	green := color.New(color.FgGreen).SprintFunc()
	if rec.ChosenIssue != "" {
		fmt.Printf("%s %s resolved as %s against %s\n\n", green("✓"), rec.TaskID, rec.Type, rec.ChosenIssue)
	} else {
		fmt.Printf("%s %s resolved as %s\n\n", green("✓"), rec.TaskID, rec.Type)
	}
	return nil
}

func printAnalysis(a *analysis.DuplicateAnalysis) {
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s %s\n", yellow("Task:"), a.Task.Summary)
	if a.Task.Description != "" {
		fmt.Printf("  %s\n", gray(a.Task.Description))
	}
	fmt.Printf("  Recommendation: %s", a.RecommendedAction)
	if a.Partial {
		fmt.Printf(" %s", yellow("(partial)"))
	}
	fmt.Println()
	if a.Reasoning != "" {
		fmt.Printf("  %s\n", gray(a.Reasoning))
	}
	for i, r := range a.Results {
		if i >= 3 {
			fmt.Printf("  %s\n", gray(fmt.Sprintf("... and %d more", len(a.Results)-i)))
			break
		}
		fmt.Printf("  %d. %s (%.0f%%, %s) %s\n", i+1, r.Issue.Key, r.OverallScore*100, r.MatchClass, gray(r.Issue.Summary))
	}
	fmt.Println()
}
