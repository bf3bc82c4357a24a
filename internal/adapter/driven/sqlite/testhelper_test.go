package sqlite

import (
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory database with the schema applied.
// The name derives from t.Name() so parallel tests stay isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it cannot be read as DSN query parameters.
	name := url.PathEscape(t.Name())

	db, err := openDB(buildDSN(name, true))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
