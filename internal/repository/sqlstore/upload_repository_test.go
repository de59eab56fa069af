package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter-web/internal/domain"
	"hunter-web/internal/repository"
)

func newReceiving(t *testing.T, repo *UploadRepository, name string) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), &domain.Upload{
		Name:      name,
		Status:    domain.UploadStatusReceiving,
		LocalPath: "/tmp/" + name,
	})
	require.NoError(t, err)
	return id
}

func TestUploadRepository_Lifecycle(t *testing.T) {
	repo := NewUploadRepository(newTestDB(t))
	ctx := context.Background()

	id := newReceiving(t, repo, "movie.bin")

	require.NoError(t, repo.AppendChunk(ctx, id, 10))
	require.NoError(t, repo.AppendChunk(ctx, id, 5))

	got, err := repo.GetReceivingByName(ctx, "movie.bin")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(15), got.Size)
	assert.Equal(t, 2, got.Chunks)
	assert.Nil(t, got.StoredAt)

	storedAt := time.Now().UTC()
	require.NoError(t, repo.MarkStored(ctx, id, storedAt))

	_, err = repo.GetReceivingByName(ctx, "movie.bin")
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.AppendChunk(ctx, id, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.MarkMirrored(ctx, id, "s3://bucket/key", time.Now()))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusMirrored, got.Status)
	assert.Equal(t, "s3://bucket/key", got.S3Location)
	require.NotNil(t, got.StoredAt)
	require.NotNil(t, got.MirroredAt)
	assert.WithinDuration(t, storedAt, *got.StoredAt, time.Second)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)
}

func TestUploadRepository_OneReceivingUploadPerName(t *testing.T) {
	repo := NewUploadRepository(newTestDB(t))
	ctx := context.Background()

	id := newReceiving(t, repo, "a.txt")
	_, err := repo.Create(ctx, &domain.Upload{Name: "a.txt", Status: domain.UploadStatusReceiving})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, repo.MarkStored(ctx, id, time.Now()))
	newReceiving(t, repo, "a.txt")
}

func TestUploadRepository_ListByStatuses(t *testing.T) {
	repo := NewUploadRepository(newTestDB(t))
	ctx := context.Background()

	first := newReceiving(t, repo, "one")
	second := newReceiving(t, repo, "two")
	newReceiving(t, repo, "three")

	require.NoError(t, repo.MarkStored(ctx, first, time.Now()))
	msg := "boom"
	require.NoError(t, repo.UpdateStatus(ctx, second, domain.UploadStatusFailed, &msg))

	got, err := repo.ListByStatuses(ctx, domain.UploadStatusStored, domain.UploadStatusFailed)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, "boom", got[1].ErrorMessage)

	none, err := repo.ListByStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Name)
}
