package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hunter-web/internal/domain"
	"hunter-web/internal/repository"
)

const uploadColumns = `id, name, status, size, chunks, local_path, s3_location, error_message, created_at, updated_at, stored_at, mirrored_at`

type UploadRepository struct {
	db *DB
}

func NewUploadRepository(db *DB) *UploadRepository {
	return &UploadRepository{db: db}
}

var _ repository.UploadRepository = (*UploadRepository)(nil)

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) (int64, error) {
	now := time.Now().UTC()
	upload.CreatedAt = now
	upload.UpdatedAt = now

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
INSERT INTO uploads (name, status, size, chunks, local_path, s3_location, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		upload.Name,
		string(upload.Status),
		upload.Size,
		upload.Chunks,
		upload.LocalPath,
		upload.S3Location,
		upload.ErrorMessage,
		upload.CreatedAt,
		upload.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("upload %q: %w", upload.Name, repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert upload: %w", err)
	}

	upload.ID = id
	return id, nil
}

// AppendChunk records one more chunk of the given size on a receiving upload.
func (r *UploadRepository) AppendChunk(ctx context.Context, id int64, size int64) error {
	return r.execOne(ctx, "append chunk", id, `
UPDATE uploads
SET size = size + ?, chunks = chunks + 1, updated_at = ?
WHERE id = ? AND status = ?`,
		size,
		time.Now().UTC(),
		id,
		string(domain.UploadStatusReceiving),
	)
}

func (r *UploadRepository) UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus, errorMessage *string) error {
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	return r.execOne(ctx, "update upload status", id, `
UPDATE uploads
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?`,
		string(status),
		msg,
		time.Now().UTC(),
		id,
	)
}

func (r *UploadRepository) MarkStored(ctx context.Context, id int64, storedAt time.Time) error {
	return r.execOne(ctx, "mark stored", id, `
UPDATE uploads
SET status = ?, stored_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.UploadStatusStored),
		storedAt.UTC(),
		time.Now().UTC(),
		id,
	)
}

func (r *UploadRepository) MarkMirrored(ctx context.Context, id int64, s3Location string, mirroredAt time.Time) error {
	return r.execOne(ctx, "mark mirrored", id, `
UPDATE uploads
SET status = ?, s3_location = ?, error_message = '', mirrored_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.UploadStatusMirrored),
		s3Location,
		mirroredAt.UTC(),
		time.Now().UTC(),
		id,
	)
}

func (r *UploadRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete upload", id, `DELETE FROM uploads WHERE id = ?`, id)
}

func (r *UploadRepository) execOne(ctx context.Context, op string, id int64, query string, args ...any) error {
	if err := r.db.ExecOne(ctx, query, args...); err != nil {
		if errors.Is(err, ErrNoRowAffected) {
			return fmt.Errorf("upload %d: %w", id, repository.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *UploadRepository) Get(ctx context.Context, id int64) (*domain.Upload, error) {
	return r.getOne(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
}

// GetReceivingByName finds the upload still accepting chunks under name.
func (r *UploadRepository) GetReceivingByName(ctx context.Context, name string) (*domain.Upload, error) {
	return r.getOne(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE name = ? AND status = ?`,
		name, string(domain.UploadStatusReceiving))
}

func (r *UploadRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Upload, error) {
	upload, err := queryOne(ctx, r.db, scanUpload, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("upload: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("query upload: %w", err)
	}
	return &upload, nil
}

func (r *UploadRepository) List(ctx context.Context) ([]domain.Upload, error) {
	uploads, err := queryAll(ctx, r.db, scanUpload, `SELECT `+uploadColumns+` FROM uploads ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	return uploads, nil
}

func (r *UploadRepository) ListByStatuses(ctx context.Context, statuses ...domain.UploadStatus) ([]domain.Upload, error) {
	if len(statuses) == 0 {
		return []domain.Upload{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}

	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE status IN (%s) ORDER BY id ASC`,
		uploadColumns, strings.Join(placeholders, ","))

	uploads, err := queryAll(ctx, r.db, scanUpload, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query uploads by status: %w", err)
	}
	return uploads, nil
}

func scanUpload(row scanner) (domain.Upload, error) {
	var (
		upload     domain.Upload
		status     string
		storedAt   sql.NullTime
		mirroredAt sql.NullTime
	)

	if err := row.Scan(
		&upload.ID,
		&upload.Name,
		&status,
		&upload.Size,
		&upload.Chunks,
		&upload.LocalPath,
		&upload.S3Location,
		&upload.ErrorMessage,
		&upload.CreatedAt,
		&upload.UpdatedAt,
		&storedAt,
		&mirroredAt,
	); err != nil {
		return domain.Upload{}, fmt.Errorf("scan upload: %w", err)
	}

	upload.Status = domain.UploadStatus(status)
	upload.CreatedAt = upload.CreatedAt.UTC()
	upload.UpdatedAt = upload.UpdatedAt.UTC()
	if storedAt.Valid {
		t := storedAt.Time.UTC()
		upload.StoredAt = &t
	}
	if mirroredAt.Valid {
		t := mirroredAt.Time.UTC()
		upload.MirroredAt = &t
	}
	return upload, nil
}
