package httpfetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// Schema creates the engine's own state table. Handles are never 0.
const Schema = `
CREATE TABLE IF NOT EXISTS fetch_entries (
	handle           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_url       TEXT    NOT NULL,
	destination      TEXT    NOT NULL,
	file_name        TEXT    NOT NULL,
	file_path        TEXT    NOT NULL DEFAULT '',
	status           TEXT    NOT NULL,
	total_bytes      INTEGER NOT NULL DEFAULT -1,
	downloaded_bytes INTEGER NOT NULL DEFAULT 0,
	mime_type        TEXT    NOT NULL DEFAULT '',
	attempts         INTEGER NOT NULL DEFAULT 0,
	error            TEXT    NOT NULL DEFAULT '',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fetch_entries_status ON fetch_entries(status, handle);
`

type entry struct {
	Handle          int64  `db:"handle"`
	SourceURL       string `db:"source_url"`
	Destination     string `db:"destination"`
	FileName        string `db:"file_name"`
	FilePath        string `db:"file_path"`
	Status          string `db:"status"`
	TotalBytes      int64  `db:"total_bytes"`
	DownloadedBytes int64  `db:"downloaded_bytes"`
	MimeType        string `db:"mime_type"`
	Attempts        int    `db:"attempts"`
	Error           string `db:"error"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (e entry) toDomain() domain.EngineDownload {
	status := domain.ParseDownloadStatus(e.Status)
	progress := -1
	switch {
	case status == domain.DownloadStatusCompleted:
		progress = 100
	case e.TotalBytes > 0:
		progress = int(e.DownloadedBytes * 100 / e.TotalBytes)
	}
	return domain.EngineDownload{
		Handle:          domain.EngineHandle(e.Handle),
		Status:          status,
		RawStatus:       e.Status,
		Progress:        progress,
		DownloadedBytes: e.DownloadedBytes,
		TotalBytes:      e.TotalBytes,
		FilePath:        e.FilePath,
		MimeType:        e.MimeType,
		Error:           e.Error,
	}
}

// store wraps the fetch_entries table. Every status change is a guarded UPDATE
// so concurrent processes sharing the database cannot clobber each other.
type store struct {
	db *sqlx.DB
}

func newStore(ctx context.Context, db *sqlx.DB) (*store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("failed to apply fetch schema: %w", err)
	}
	return &store{db: db}, nil
}

func now() int64 { return time.Now().UnixMilli() }

func (s *store) insert(ctx context.Context, sourceURL, destination, fileName string) (int64, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_entries (source_url, destination, file_name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sourceURL, destination, fileName, domain.DownloadStatusQueued.String(), ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *store) get(ctx context.Context, handle int64) (entry, error) {
	var e entry
	err := s.db.GetContext(ctx, &e, `SELECT * FROM fetch_entries WHERE handle = ?`, handle)
	if errors.Is(err, sql.ErrNoRows) {
		return entry{}, domain.ErrEngineEntryNotFound
	}
	return e, err
}

func (s *store) status(ctx context.Context, handle int64) (string, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM fetch_entries WHERE handle = ?`, handle)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrEngineEntryNotFound
	}
	return status, err
}

// transition moves handle to `to` when its current status is one of from.
// Reports whether a row changed.
func (s *store) transition(ctx context.Context, handle int64, to domain.DownloadStatus, from ...domain.DownloadStatus) (bool, error) {
	names := make([]string, len(from))
	for i, f := range from {
		names[i] = f.String()
	}
	query, args, err := sqlx.In(
		`UPDATE fetch_entries SET status = ?, updated_at = ? WHERE handle = ? AND status IN (?)`,
		to.String(), now(), handle, names)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// restart queues a failed or cancelled entry from scratch.
func (s *store) restart(ctx context.Context, handle int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fetch_entries
		SET status = ?, downloaded_bytes = 0, total_bytes = -1, attempts = 0, error = '', file_path = '', updated_at = ?
		WHERE handle = ? AND status IN (?, ?)`,
		domain.DownloadStatusQueued.String(), now(), handle,
		domain.DownloadStatusFailed.String(), domain.DownloadStatusCancelled.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *store) queued(ctx context.Context, limit int) ([]entry, error) {
	var out []entry
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM fetch_entries WHERE status = ? ORDER BY handle LIMIT ?`,
		domain.DownloadStatusQueued.String(), limit)
	return out, err
}

// requeueInterrupted puts entries left "downloading" by a dead process back in the queue.
func (s *store) requeueInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fetch_entries SET status = ?, updated_at = ? WHERE status = ?`,
		domain.DownloadStatusQueued.String(), now(), domain.DownloadStatusDownloading.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *store) setFileName(ctx context.Context, handle int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fetch_entries SET file_name = ?, updated_at = ? WHERE handle = ?`, name, now(), handle)
	return err
}

func (s *store) progress(ctx context.Context, handle, downloaded, total int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fetch_entries SET downloaded_bytes = ?, total_bytes = ?, updated_at = ? WHERE handle = ?`,
		downloaded, total, now(), handle)
	return err
}

// complete records a finished file. A pause or cancel that lands after the file
// was moved into place loses: the finished file wins. Reports whether the entry
// still existed.
func (s *store) complete(ctx context.Context, handle int64, filePath, mimeType string, size int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fetch_entries
		SET status = ?, file_path = ?, mime_type = ?, downloaded_bytes = ?, total_bytes = ?, error = '', updated_at = ?
		WHERE handle = ? AND status IN (?, ?, ?)`,
		domain.DownloadStatusCompleted.String(), filePath, mimeType, size, size, now(),
		handle,
		domain.DownloadStatusDownloading.String(),
		domain.DownloadStatusPaused.String(),
		domain.DownloadStatusCancelled.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// attemptFailed records a failed attempt. The entry goes back to queued while
// attempts stay within retries, otherwise it is marked failed.
func (s *store) attemptFailed(ctx context.Context, handle int64, cause error, retries int) (domain.DownloadStatus, error) {
	e, err := s.get(ctx, handle)
	if err != nil {
		return domain.DownloadStatusUnknown, err
	}
	next := domain.DownloadStatusQueued
	if e.Attempts+1 > retries {
		next = domain.DownloadStatusFailed
	}
	msg := cause.Error()
	if len(msg) > 512 {
		msg = msg[:512]
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE fetch_entries SET status = ?, attempts = attempts + 1, error = ?, updated_at = ?
		WHERE handle = ? AND status = ?`,
		next.String(), strings.TrimSpace(msg), now(), handle, domain.DownloadStatusDownloading.String())
	return next, err
}

func (s *store) delete(ctx context.Context, handle int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM fetch_entries WHERE handle = ?`, handle)
	return err
}
