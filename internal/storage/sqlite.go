// Package storage provides the SQLite persistence backend for resolution
// records, audit events, and analysis snapshots.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/resolution"
)

// SQLiteStore implements resolution.Store plus analysis snapshot persistence
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check
var _ resolution.Store = (*SQLiteStore)(nil)

// New opens (or creates) the SQLite database at path
func New(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResolution persists a resolution record. A task has at most one live
// resolution; saving again for the same task replaces it (the workflow has
// already decided whether that is allowed).
func (s *SQLiteStore) SaveResolution(ctx context.Context, rec *resolution.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid resolution record: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (id, task_id, analysis_id, type, chosen_issue, actor, notes, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			id = excluded.id,
			analysis_id = excluded.analysis_id,
			type = excluded.type,
			chosen_issue = excluded.chosen_issue,
			actor = excluded.actor,
			notes = excluded.notes,
			resolved_at = excluded.resolved_at`,
		rec.ID, rec.TaskID, nullable(rec.AnalysisID), string(rec.Type),
		nullable(rec.ChosenIssue), rec.Actor, rec.Notes, rec.ResolvedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save resolution for %s: %w", rec.TaskID, err)
	}
	return nil
}

// GetResolutionByTask returns the live resolution for a task
func (s *SQLiteStore) GetResolutionByTask(ctx context.Context, taskID string) (*resolution.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, analysis_id, type, chosen_issue, actor, notes, resolved_at
		FROM resolutions WHERE task_id = ?`, taskID)
	return scanResolution(row)
}

// ListResolutions returns the most recent resolutions, newest first
func (s *SQLiteStore) ListResolutions(ctx context.Context, limit int) ([]*resolution.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, analysis_id, type, chosen_issue, actor, notes, resolved_at
		FROM resolutions ORDER BY resolved_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var records []*resolution.Record
	for rows.Next() {
		rec, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendAudit appends an audit event. Events are never updated or deleted.
func (s *SQLiteStore) AppendAudit(ctx context.Context, event *resolution.AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, task_id, action, actor, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.TaskID, event.Action, event.Actor, event.Detail, event.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append audit event for %s: %w", event.TaskID, err)
	}
	return nil
}

// ListAuditByTask returns the audit trail for a task, oldest first
func (s *SQLiteStore) ListAuditByTask(ctx context.Context, taskID string) ([]*resolution.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, action, actor, detail, created_at
		FROM audit_events WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events for %s: %w", taskID, err)
	}
	defer rows.Close()

	var events []*resolution.AuditEvent
	for rows.Next() {
		var e resolution.AuditEvent
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Action, &e.Actor, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.CreatedAt = createdAt
		events = append(events, &e)
	}
	return events, rows.Err()
}

// SaveAnalysis persists an analysis snapshot as JSON for later review
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *analysis.DuplicateAnalysis) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid analysis: %w", err)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis %s: %w", a.ID, err)
	}
	partial := 0
	if a.Partial {
		partial = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, task_id, project_key, recommended_action, partial, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Task.ID, a.ProjectKey, string(a.RecommendedAction), partial, string(payload), a.AnalyzedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis loads one analysis snapshot by ID
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*analysis.DuplicateAnalysis, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis %s: %w", id, resolution.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis %s: %w", id, err)
	}
	var a analysis.DuplicateAnalysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis %s: %w", id, err)
	}
	return &a, nil
}

// ListAnalysesByTask returns a task's analysis snapshots, newest first
func (s *SQLiteStore) ListAnalysesByTask(ctx context.Context, taskID string, limit int) ([]*analysis.DuplicateAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM analyses WHERE task_id = ?
		ORDER BY created_at DESC, id LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for %s: %w", taskID, err)
	}
	defer rows.Close()

	var out []*analysis.DuplicateAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		var a analysis.DuplicateAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// PendingReview returns analyses whose tasks have no resolution yet,
// newest first. This backs the interactive review queue.
func (s *SQLiteStore) PendingReview(ctx context.Context, limit int) ([]*analysis.DuplicateAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.payload FROM analyses a
		LEFT JOIN resolutions r ON r.task_id = a.task_id
		WHERE r.id IS NULL
		ORDER BY a.created_at DESC, a.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending analyses: %w", err)
	}
	defer rows.Close()

	var out []*analysis.DuplicateAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		var a analysis.DuplicateAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResolution(row rowScanner) (*resolution.Record, error) {
	var rec resolution.Record
	var analysisID, chosenIssue sql.NullString
	var typ string
	var resolvedAt time.Time
	err := row.Scan(&rec.ID, &rec.TaskID, &analysisID, &typ, &chosenIssue, &rec.Actor, &rec.Notes, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, resolution.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resolution: %w", err)
	}
	rec.AnalysisID = analysisID.String
	rec.ChosenIssue = chosenIssue.String
	rec.Type = resolution.Type(typ)
	rec.ResolvedAt = resolvedAt
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
