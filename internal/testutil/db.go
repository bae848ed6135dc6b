// internal/testutil/db.go
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/bsse/smashcourt/internal/db"
)

// NewTestDB opens a fresh migrated SQLite database in a temp directory.
// The database is closed when the test finishes.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
