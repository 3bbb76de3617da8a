package service_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vitaup/vitacore/internal/db"
)

// newTestDB opens a migrated database in the test's temp dir.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "data", "vita.db"))
	if err != nil {
		t.Fatalf("open migrated db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return sqldb
}
