package storage

const schema = `
-- Resolution records: one live decision per task
CREATE TABLE IF NOT EXISTS resolutions (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL UNIQUE,
    analysis_id TEXT,
    type TEXT NOT NULL,
    chosen_issue TEXT,
    actor TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    resolved_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at);
CREATE INDEX IF NOT EXISTS idx_resolutions_type ON resolutions(type);

-- Audit trail: append-only, survives forced overrides
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    action TEXT NOT NULL,
    actor TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_task ON audit_events(task_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);

-- Analysis snapshots for review and history (full payload as JSON)
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    project_key TEXT NOT NULL,
    recommended_action TEXT NOT NULL,
    partial INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_task ON analyses(task_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`
