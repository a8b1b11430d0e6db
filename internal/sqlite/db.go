package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations runs the migrations directly (for testing and single-node
// deployments)
func (db *DB) RunMigrations() error {
	migration := `
-- Tenants table
CREATE TABLE tenants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    tier TEXT NOT NULL CHECK(tier IN ('free', 'starter', 'scale')),
    status TEXT NOT NULL CHECK(status IN ('trial', 'active', 'cancelled', 'expired')),
    trial_ends_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Sealed source credentials, one per tenant/source pair
CREATE TABLE credentials (
    tenant_id TEXT NOT NULL,
    source TEXT NOT NULL CHECK(source IN ('chat', 'tracker', 'code_host')),
    sealed_token TEXT NOT NULL,
    token_expires_at TIMESTAMP,
    workspace_id TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tenant_id, source),
    FOREIGN KEY (tenant_id) REFERENCES tenants(id)
);

-- Incremental sync watermarks
CREATE TABLE sync_cursors (
    tenant_id TEXT NOT NULL,
    source TEXT NOT NULL,
    watermark TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tenant_id, source)
);

-- Raw ingested activity. The (tenant_id, source, source_id) uniqueness
-- makes re-ingestion of the same upstream event a no-op.
CREATE TABLE raw_activity (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    source TEXT NOT NULL,
    source_id TEXT NOT NULL,
    type TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    author TEXT,
    body TEXT NOT NULL,
    channel_id TEXT,
    channel_name TEXT,
    thread_id TEXT,
    item_refs TEXT NOT NULL DEFAULT '[]',
    reconciled INTEGER NOT NULL DEFAULT 0,
    ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (tenant_id, source, source_id)
);
CREATE INDEX idx_activity_tenant ON raw_activity(tenant_id);
CREATE INDEX idx_activity_unreconciled ON raw_activity(tenant_id, reconciled, occurred_at);
CREATE INDEX idx_activity_ingested ON raw_activity(tenant_id, ingested_at);

-- Local mirror of tracker work items, keyed by source-native ID
CREATE TABLE work_items (
    tenant_id TEXT NOT NULL,
    id TEXT NOT NULL,
    identifier TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    state_name TEXT NOT NULL,
    state_type TEXT NOT NULL,
    url TEXT,
    assignee TEXT,
    parent_id TEXT,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);
CREATE INDEX idx_work_items_identifier ON work_items(tenant_id, identifier);
CREATE INDEX idx_work_items_state ON work_items(tenant_id, state_type);

-- Decision audit log. Rows are append-only except for the single
-- pending -> terminal outcome transition.
CREATE TABLE decisions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('link_to_item', 'create_item', 'transition_item', 'post_summary')),
    source TEXT NOT NULL,
    subject_activity_ids TEXT NOT NULL DEFAULT '[]',
    channel_id TEXT,
    channel_name TEXT,
    thread_id TEXT,
    target_item_id TEXT,
    target_identifier TEXT,
    title TEXT,
    body TEXT,
    to_state_name TEXT,
    to_state_type TEXT,
    confidence REAL NOT NULL,
    rationale TEXT NOT NULL,
    auto_apply INTEGER NOT NULL DEFAULT 0,
    proposed_at TIMESTAMP NOT NULL,
    outcome TEXT NOT NULL DEFAULT 'pending' CHECK(outcome IN ('pending', 'applied', 'rejected', 'failed')),
    applied_at TIMESTAMP,
    failure_reason TEXT
);
CREATE INDEX idx_decisions_tenant ON decisions(tenant_id, proposed_at);
CREATE INDEX idx_decisions_outcome ON decisions(tenant_id, outcome);

-- Expiring run leases serializing sync per tenant/source.
-- expires_at is unix seconds so takeover comparison happens in SQL.
CREATE TABLE run_leases (
    tenant_id TEXT NOT NULL,
    source TEXT NOT NULL,
    holder TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    PRIMARY KEY (tenant_id, source)
);

-- API keys for authentication
CREATE TABLE api_keys (
    key_hash TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
CREATE INDEX idx_tenant_keys ON api_keys(tenant_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
