// Package testing provides testing utilities and helpers for the trainer.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/database"
)

// NewTestDB creates a migrated SQLite database in a per-test temporary directory.
// The connection is closed automatically when the test ends.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "trainer_test.db"),
		Profile: database.ProfileCache,
		Name:    "trainer",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database: %v", err)
		}
	})
	return db
}
