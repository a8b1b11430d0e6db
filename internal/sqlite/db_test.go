package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/loomhq/loom/internal/domain/tenant"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestTenant(t *testing.T, db *DB, id string) {
	t.Helper()

	now := time.Now()
	err := NewTenantRepository(db).Create(context.Background(), &tenant.Tenant{
		ID:        id,
		Name:      "Test Tenant " + id,
		Tier:      tenant.TierStarter,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"tenants",
		"credentials",
		"sync_cursors",
		"raw_activity",
		"work_items",
		"decisions",
		"run_leases",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

// TestConstraints verifies the CHECK constraints on enum-ish columns
func TestConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, tier, status) VALUES (?, ?, ?, ?)`,
		"t1", "Test", "platinum", "active")
	require.Error(t, err, "should reject unknown tier")

	_, err = db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, tier, status) VALUES (?, ?, ?, ?)`,
		"t1", "Test", "starter", "paused")
	require.Error(t, err, "should reject unknown status")

	createTestTenant(t, db, "t1")

	_, err = db.ExecContext(ctx,
		`INSERT INTO decisions (id, tenant_id, kind, source, confidence, rationale, proposed_at, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"d1", "t1", "guess_wildly", "chat", 0.5, "r", time.Now(), "pending")
	require.Error(t, err, "should reject unknown decision kind")
}
