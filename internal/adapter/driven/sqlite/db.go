// Package sqlite implements the persistence ports on an embedded SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// commonPragmas apply to file and in-memory databases alike.
var commonPragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"cache_size(-64000)",
}

// DB provides dual reader/writer database connections.
// The writer is limited to a single connection to avoid "database is locked" errors;
// the reader pool allows up to 4 concurrent readers.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
}

// NewDB opens a WAL-mode database file at dbPath.
func NewDB(dbPath string) (*DB, error) {
	return openDB(buildDSN(dbPath, false))
}

// buildDSN renders the modernc.org/sqlite URI for target. In-memory databases
// are shared by name between the two pools and skip journal_mode, which has no
// effect without a file.
func buildDSN(target string, inMemory bool) string {
	pragmas := commonPragmas
	params := make([]string, 0, len(pragmas)+2)
	if inMemory {
		params = append(params, "mode=memory", "cache=shared")
	} else {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return fmt.Sprintf("file:%s?%s", target, strings.Join(params, "&"))
}

func openDB(dsn string) (*DB, error) {
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.Ping(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader}, nil
}

// Close closes both reader and writer connections. Returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}
