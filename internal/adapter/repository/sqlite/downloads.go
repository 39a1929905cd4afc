package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const repoType = "download_requests"

// DownloadRepository implements ports.DownloadRepository on SQLite.
type DownloadRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// downloadRow mirrors the table; created_at is stored as unix milliseconds.
type downloadRow struct {
	ID        string `db:"id"`
	Kind      string `db:"kind"`
	Payload   string `db:"payload"`
	Handle    int64  `db:"engine_handle"`
	CreatedAt int64  `db:"created_at"`
}

func (r downloadRow) toDomain() domain.DownloadRequest {
	return domain.DownloadRequest{
		ID:        r.ID,
		Kind:      domain.ContentKind(r.Kind),
		Payload:   r.Payload,
		Handle:    domain.EngineHandle(r.Handle),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func fromDomain(req domain.DownloadRequest) downloadRow {
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return downloadRow{
		ID:        req.ID,
		Kind:      string(req.Kind),
		Payload:   req.Payload,
		Handle:    int64(req.Handle),
		CreatedAt: created.UnixMilli(),
	}
}

// NewDownloadRepository creates a repository on an opened database.
func NewDownloadRepository(db *sqlx.DB, logger *slog.Logger) *DownloadRepository {
	return &DownloadRepository{
		db:     db,
		logger: logger.With(slog.String("repository", repoType)),
	}
}

// Get returns the record for id, or domain.ErrRecordNotFound.
func (r *DownloadRepository) Get(ctx context.Context, id string) (domain.DownloadRequest, error) {
	var row downloadRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, kind, payload, engine_handle, created_at FROM download_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DownloadRequest{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.DownloadRequest{}, domain.NewRepositoryError("get", repoType, "query failed for "+id, err)
	}
	return row.toDomain(), nil
}

// Save inserts or replaces the record keyed by its id.
func (r *DownloadRepository) Save(ctx context.Context, req domain.DownloadRequest) error {
	if req.ID == "" {
		return domain.NewValidationError("id", req.ID, "must not be empty")
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO download_requests (id, kind, payload, engine_handle, created_at)
		VALUES (:id, :kind, :payload, :engine_handle, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			engine_handle = excluded.engine_handle,
			created_at = excluded.created_at`, fromDomain(req))
	if err != nil {
		return domain.NewRepositoryError("save", repoType, "upsert failed for "+req.ID, err)
	}
	r.logger.Debug("record saved", slog.String("content_id", req.ID), slog.Int64("handle", int64(req.Handle)))
	return nil
}

// Delete removes the record for id. Missing ids are a no-op.
func (r *DownloadRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM download_requests WHERE id = ?`, id); err != nil {
		return domain.NewRepositoryError("delete", repoType, "delete failed for "+id, err)
	}
	return nil
}

// List returns all records, oldest first.
func (r *DownloadRepository) List(ctx context.Context) ([]domain.DownloadRequest, error) {
	var rows []downloadRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT id, kind, payload, engine_handle, created_at FROM download_requests ORDER BY created_at, id`)
	if err != nil {
		return nil, domain.NewRepositoryError("list", repoType, "query failed", err)
	}
	out := make([]domain.DownloadRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

var _ ports.DownloadRepository = (*DownloadRepository)(nil)
