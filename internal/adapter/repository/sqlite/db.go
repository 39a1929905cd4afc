// Package sqlite provides the SQLite-backed download record store.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Schema creates the download record table.
const Schema = `
CREATE TABLE IF NOT EXISTS download_requests (
	id            TEXT PRIMARY KEY,
	kind          TEXT    NOT NULL,
	payload       TEXT    NOT NULL,
	engine_handle INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_download_requests_created ON download_requests(created_at);
`

// Open opens (or creates) the SQLite database at dsn and applies the record schema.
// Other packages sharing the handle apply their own schema on top.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")

	db, err := sqlx.Open("sqlite", withPragmas(dsn, memory))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

// withPragmas adds per-connection pragmas to the DSN, so every pooled
// connection gets the busy timeout and not only the first one.
func withPragmas(dsn string, memory bool) string {
	pragmas := []string{"busy_timeout(30000)", "foreign_keys(1)"}
	if !memory {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}
