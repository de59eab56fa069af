package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"hunter-web/internal/domain"
	"hunter-web/internal/repository"
	"hunter-web/internal/storage"
)

var (
	ErrUploadNotFound    = errors.New("upload not found")
	ErrInvalidUploadName = errors.New("invalid upload name")
	// ErrLocalCleanup is returned when the record is gone but its files remain.
	ErrLocalCleanup = errors.New("remove local data")
)

// ChunkStore persists chunk bytes on local disk.
type ChunkStore interface {
	PathFor(dir, name string) (string, error)
	Append(path string, r io.Reader) (int64, error)
	Remove(path string) error
}

// UploadService coordinates chunked uploads and their mirror state.
type UploadService interface {
	AppendChunk(ctx context.Context, name string, chunk io.Reader, final bool) (*domain.Upload, error)
	GetUpload(ctx context.Context, id int64) (*domain.Upload, error)
	ListUploads(ctx context.Context) ([]domain.Upload, error)
	ListByStatuses(ctx context.Context, statuses ...domain.UploadStatus) ([]domain.Upload, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus, errMsg *string) error
	MarkMirrored(ctx context.Context, id int64, s3Location string) error
	DeleteUpload(ctx context.Context, id int64) error
}

type uploadService struct {
	uploads repository.UploadRepository
	chunks  ChunkStore

	// serializes appends so chunks land in arrival order
	mu sync.Mutex
}

func NewUploadService(uploads repository.UploadRepository, chunks ChunkStore) UploadService {
	return &uploadService{
		uploads: uploads,
		chunks:  chunks,
	}
}

// AppendChunk adds chunk to the receiving upload called name, starting a new
// upload when none is open. With final set the upload is marked stored.
func (s *uploadService) AppendChunk(ctx context.Context, name string, chunk io.Reader, final bool) (*domain.Upload, error) {
	if !storage.ValidName(name) {
		return nil, ErrInvalidUploadName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	upload, err := s.uploads.GetReceivingByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		upload, err = s.start(ctx, name)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	n, err := s.chunks.Append(upload.LocalPath, chunk)
	if err != nil {
		return nil, fmt.Errorf("store chunk: %w", err)
	}
	if err := s.uploads.AppendChunk(ctx, upload.ID, n); err != nil {
		return nil, err
	}

	if final {
		if err := s.uploads.MarkStored(ctx, upload.ID, time.Now()); err != nil {
			return nil, err
		}
	}

	return s.GetUpload(ctx, upload.ID)
}

func (s *uploadService) start(ctx context.Context, name string) (*domain.Upload, error) {
	path, err := s.chunks.PathFor(fmt.Sprintf("upload-%s", uuid.NewString()), name)
	if err != nil {
		return nil, ErrInvalidUploadName
	}
	upload := &domain.Upload{
		Name:      name,
		Status:    domain.UploadStatusReceiving,
		LocalPath: path,
	}
	if _, err := s.uploads.Create(ctx, upload); err != nil {
		return nil, err
	}
	return upload, nil
}

func (s *uploadService) GetUpload(ctx context.Context, id int64) (*domain.Upload, error) {
	upload, err := s.uploads.Get(ctx, id)
	if err != nil {
		return nil, mapUploadErr(err)
	}
	return upload, nil
}

func (s *uploadService) ListUploads(ctx context.Context) ([]domain.Upload, error) {
	return s.uploads.List(ctx)
}

func (s *uploadService) ListByStatuses(ctx context.Context, statuses ...domain.UploadStatus) ([]domain.Upload, error) {
	return s.uploads.ListByStatuses(ctx, statuses...)
}

func (s *uploadService) UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus, errMsg *string) error {
	return mapUploadErr(s.uploads.UpdateStatus(ctx, id, status, errMsg))
}

func (s *uploadService) MarkMirrored(ctx context.Context, id int64, s3Location string) error {
	return mapUploadErr(s.uploads.MarkMirrored(ctx, id, s3Location, time.Now()))
}

// DeleteUpload drops the record and the local directory of an upload. It
// shares the append lock, so a chunk for the same name either lands before
// the delete or opens a new upload.
func (s *uploadService) DeleteUpload(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, err := s.uploads.Get(ctx, id)
	if err != nil {
		return mapUploadErr(err)
	}
	if err := s.uploads.Delete(ctx, id); err != nil {
		return mapUploadErr(err)
	}
	if err := s.chunks.Remove(upload.LocalPath); err != nil {
		return fmt.Errorf("%w: %v", ErrLocalCleanup, err)
	}
	return nil
}

func mapUploadErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUploadNotFound
	}
	return err
}
