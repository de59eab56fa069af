package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter-web/internal/domain"
	"hunter-web/internal/repository/sqlstore"
	"hunter-web/internal/storage"
)

func newTestUploadService(t *testing.T) UploadService {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewUploadService(sqlstore.NewUploadRepository(newTestDB(t)), store)
}

func TestUploadService_AppendChunks(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	first, err := svc.AppendChunk(ctx, "notes.txt", strings.NewReader("hello "), false)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusReceiving, first.Status)
	assert.Equal(t, 1, first.Chunks)

	last, err := svc.AppendChunk(ctx, "notes.txt", strings.NewReader("world"), true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, last.ID)
	assert.Equal(t, domain.UploadStatusStored, last.Status)
	assert.Equal(t, int64(11), last.Size)
	assert.Equal(t, 2, last.Chunks)
	require.NotNil(t, last.StoredAt)

	data, err := os.ReadFile(last.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestUploadService_NewUploadAfterStored(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	first, err := svc.AppendChunk(ctx, "a.bin", strings.NewReader("one"), true)
	require.NoError(t, err)
	second, err := svc.AppendChunk(ctx, "a.bin", strings.NewReader("two"), false)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.LocalPath, second.LocalPath)

	data, err := os.ReadFile(first.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestUploadService_RejectsBadNames(t *testing.T) {
	svc := newTestUploadService(t)

	for _, name := range []string{"", "../x", "a/b", ".."} {
		_, err := svc.AppendChunk(context.Background(), name, strings.NewReader("x"), false)
		assert.ErrorIs(t, err, ErrInvalidUploadName, name)
	}
}

func TestUploadService_ConcurrentChunksAreSerialized(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendChunk(ctx, "parts.bin", strings.NewReader("abcd"), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	uploads, err := svc.ListUploads(ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, 8, uploads[0].Chunks)
	assert.Equal(t, int64(32), uploads[0].Size)
}

func TestUploadService_StatusTransitions(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	up, err := svc.AppendChunk(ctx, "video.mp4", strings.NewReader("frames"), true)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, up.ID, domain.UploadStatusMirroring, nil))
	pending, err := svc.ListByStatuses(ctx, domain.UploadStatusMirroring)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.MarkMirrored(ctx, up.ID, "s3://b/k"))
	got, err := svc.GetUpload(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusMirrored, got.Status)

	require.NoError(t, svc.DeleteUpload(ctx, up.ID))
	_, err = svc.GetUpload(ctx, up.ID)
	require.ErrorIs(t, err, ErrUploadNotFound)
	require.ErrorIs(t, svc.DeleteUpload(ctx, up.ID), ErrUploadNotFound)
	require.ErrorIs(t, svc.UpdateStatus(ctx, up.ID, domain.UploadStatusFailed, nil), ErrUploadNotFound)
}

func newTestUploadServiceAt(t *testing.T, root string) UploadService {
	t.Helper()
	store, err := storage.NewLocalStore(root)
	require.NoError(t, err)
	return NewUploadService(sqlstore.NewUploadRepository(newTestDB(t)), store)
}

func TestUploadService_DeleteRemovesLocalData(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	up, err := svc.AppendChunk(ctx, "clip.mp4", strings.NewReader("frames"), false)
	require.NoError(t, err)
	require.FileExists(t, up.LocalPath)

	require.NoError(t, svc.DeleteUpload(ctx, up.ID))
	_, err = os.Stat(filepath.Dir(up.LocalPath))
	assert.True(t, os.IsNotExist(err))

	next, err := svc.AppendChunk(ctx, "clip.mp4", strings.NewReader("again"), false)
	require.NoError(t, err)
	assert.NotEqual(t, up.ID, next.ID)
	assert.NotEqual(t, up.LocalPath, next.LocalPath)
}

func TestUploadService_DeleteRacingAppendsLeavesNoStrayFiles(t *testing.T) {
	root := t.TempDir()
	svc := newTestUploadServiceAt(t, root)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.AppendChunk(ctx, "clip.mp4", strings.NewReader("x"), false)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			uploads, err := svc.ListUploads(ctx)
			if !assert.NoError(t, err) {
				return
			}
			for _, up := range uploads {
				if err := svc.DeleteUpload(ctx, up.ID); err != nil && !errors.Is(err, ErrUploadNotFound) {
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()

	uploads, err := svc.ListUploads(ctx)
	require.NoError(t, err)
	want := make([]string, 0, len(uploads))
	for _, up := range uploads {
		want = append(want, filepath.Dir(up.LocalPath))
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, filepath.Join(root, e.Name()))
	}
	assert.ElementsMatch(t, want, got)
}
