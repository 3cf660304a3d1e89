package resolution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists resolution records and their audit trail. Implemented by
// the SQLite store in internal/storage.
type Store interface {
	SaveResolution(ctx context.Context, rec *Record) error
	GetResolutionByTask(ctx context.Context, taskID string) (*Record, error)
	ListResolutions(ctx context.Context, limit int) ([]*Record, error)
	AppendAudit(ctx context.Context, event *AuditEvent) error
}

// AuditEvent records one observable workflow action
type AuditEvent struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit actions emitted by the workflow
const (
	AuditResolved   = "resolved"
	AuditSuperseded = "superseded"
)

// Request asks the workflow to resolve one task
type Request struct {
	TaskID      string `json:"task_id"`
	AnalysisID  string `json:"analysis_id,omitempty"`
	Type        Type   `json:"type"`
	ChosenIssue string `json:"chosen_issue,omitempty"`
	Actor       string `json:"actor"`
	Notes       string `json:"notes,omitempty"`

	// Force replaces an existing conflicting resolution instead of
	// failing with ConflictError
	Force bool `json:"force,omitempty"`
}

// Validate checks the request for correctness
func (r *Request) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("task ID is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("invalid resolution type: %s", r.Type)
	}
	if r.Type.RequiresIssue() && r.ChosenIssue == "" {
		return fmt.Errorf("%s resolution requires a chosen issue", r.Type)
	}
	if r.Actor == "" {
		return fmt.Errorf("actor is required")
	}
	return nil
}

// Workflow applies resolution decisions against the store. Safe for
// concurrent use: the read-check-write sequence in Resolve is serialized so
// two racing resolves for the same task cannot both pass the conflict check.
type Workflow struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewWorkflow creates a resolution workflow backed by the given store
func NewWorkflow(store Store) (*Workflow, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &Workflow{store: store, now: time.Now}, nil
}

// Resolve records a resolution decision for a task.
//
// Semantics:
//   - first resolution for the task: persisted and returned
//   - identical resubmission: the stored record is returned unchanged
//   - conflicting resubmission without Force: ConflictError with the
//     existing record attached
//   - conflicting resubmission with Force: the old record is superseded
//     and the replacement is audit-logged
func (w *Workflow) Resolve(ctx context.Context, req *Request) (*Record, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolution request: %w", err)
	}

	// Without this lock two concurrent conflicting resolves could both read
	// "not found" and the store's upsert would let the loser overwrite the
	// winner with no ConflictError.
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, err := w.store.GetResolutionByTask(ctx, req.TaskID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing resolution for %s: %w", req.TaskID, err)
	}

	if existing != nil {
		if existing.Matches(req) {
			log.Printf("[RESOLVE] Task %s already resolved as %s, returning existing record", req.TaskID, existing.Type)
			return existing, nil
		}
		if !req.Force {
			return nil, &ConflictError{Existing: existing}
		}
	}

	rec := &Record{
		ID:          uuid.New().String(),
		TaskID:      req.TaskID,
		AnalysisID:  req.AnalysisID,
		Type:        req.Type,
		ChosenIssue: req.ChosenIssue,
		Actor:       req.Actor,
		Notes:       req.Notes,
		ResolvedAt:  w.now(),
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolution record: %w", err)
	}
	if err := w.store.SaveResolution(ctx, rec); err != nil {
		return nil, fmt.Errorf("save resolution for %s: %w", req.TaskID, err)
	}

	action := AuditResolved
	detail := fmt.Sprintf("resolved as %s", rec.Type)
	if rec.ChosenIssue != "" {
		detail += " against " + rec.ChosenIssue
	}
	if existing != nil {
		action = AuditSuperseded
		detail = fmt.Sprintf("superseded %s resolution (%s) with %s", existing.Type, existing.ID, rec.Type)
		log.Printf("[RESOLVE] Task %s: forced override of %s resolution by %s", req.TaskID, existing.Type, req.Actor)
	}
	event := &AuditEvent{
		ID:        uuid.New().String(),
		TaskID:    rec.TaskID,
		Action:    action,
		Actor:     rec.Actor,
		Detail:    detail,
		CreatedAt: rec.ResolvedAt,
	}
	if err := w.store.AppendAudit(ctx, event); err != nil {
		// The resolution itself committed; a failed audit write is logged
		// rather than surfaced as a resolution failure.
		log.Printf("[RESOLVE] Failed to append audit event for %s: %v", req.TaskID, err)
	}

	log.Printf("[RESOLVE] Task %s resolved as %s by %s", rec.TaskID, rec.Type, rec.Actor)
	return rec, nil
}

// Status returns the resolution for a task, or ErrNotFound if the task is
// still unresolved
func (w *Workflow) Status(ctx context.Context, taskID string) (*Record, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID is required")
	}
	return w.store.GetResolutionByTask(ctx, taskID)
}

// History lists the most recent resolutions, newest first
func (w *Workflow) History(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return w.store.ListResolutions(ctx, limit)
}
