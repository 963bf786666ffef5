package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/cftracker/internal/db"
	"github.com/vytor/cftracker/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	return database.DB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// InsertStudent stores a sync-enabled student with the given handle and
// returns its id.
func InsertStudent(t *testing.T, database *sql.DB, handle string) int64 {
	t.Helper()
	now := time.Now().UTC()
	var id int64
	err := database.QueryRowContext(context.Background(), `
INSERT INTO students (name, email, handle, sync_enabled, last_sync_status, created_at, updated_at)
VALUES (?, ?, ?, 1, ?, ?, ?)
RETURNING id
`, "Student "+handle, handle+"@example.com", handle, models.SyncStatusNever, now, now).Scan(&id)
	require.NoError(t, err)
	return id
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
