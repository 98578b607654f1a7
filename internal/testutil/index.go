package testutil

import (
	"testing"

	"datatime/internal/bodyfile"
	"datatime/internal/index"
)

// NewTestSQLiteIndex creates an in-memory SQLite index with the schema
// applied. The index is closed automatically when the test completes.
func NewTestSQLiteIndex(t *testing.T, maxEntries int) *index.SQLiteIndex {
	t.Helper()

	idx, err := index.NewMemorySQLiteIndex(bodyfile.Decode, maxEntries)
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
