package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the evidence tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    experiment_id TEXT NOT NULL,
    type TEXT NOT NULL,

    actor TEXT,
    from_state TEXT,
    to_state TEXT,

    cost REAL NOT NULL DEFAULT 0,
    budget_used REAL NOT NULL DEFAULT 0,
    budget_allocated REAL NOT NULL DEFAULT 0,
    quality_score REAL NOT NULL DEFAULT 0,

    message TEXT,
    payload_hash TEXT,

    timestamp INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_timestamp ON evidence(timestamp);
CREATE INDEX IF NOT EXISTS idx_evidence_experiment_id ON evidence(experiment_id);
CREATE INDEX IF NOT EXISTS idx_evidence_type ON evidence(type);
CREATE INDEX IF NOT EXISTS idx_evidence_actor ON evidence(actor);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
