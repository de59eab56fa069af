package repository

import (
	"context"
	"time"

	"hunter-web/internal/domain"
)

// UploadRepository exposes persistence operations for chunked uploads.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (int64, error)
	AppendChunk(ctx context.Context, id int64, size int64) error
	UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus, errorMessage *string) error
	MarkStored(ctx context.Context, id int64, storedAt time.Time) error
	MarkMirrored(ctx context.Context, id int64, s3Location string, mirroredAt time.Time) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Upload, error)
	GetReceivingByName(ctx context.Context, name string) (*domain.Upload, error)
	List(ctx context.Context) ([]domain.Upload, error)
	ListByStatuses(ctx context.Context, statuses ...domain.UploadStatus) ([]domain.Upload, error)
}
