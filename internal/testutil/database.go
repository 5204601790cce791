package testutil

import (
	"testing"

	"visitnotes/internal/database"
	"visitnotes/internal/visit"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) visit.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
