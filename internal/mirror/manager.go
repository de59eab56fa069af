package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hunter-web/internal/domain"
	"hunter-web/internal/storage"
)

// Manager mirrors stored uploads to object storage in the background.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, uploadID int64) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, uploadID int64) error
}

// Uploads is the slice of the upload service the manager drives.
type Uploads interface {
	GetUpload(ctx context.Context, id int64) (*domain.Upload, error)
	ListByStatuses(ctx context.Context, statuses ...domain.UploadStatus) ([]domain.Upload, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus, errMsg *string) error
	MarkMirrored(ctx context.Context, id int64, s3Location string) error
}

type Config struct {
	Bucket        string
	KeyPrefix     string
	MaxConcurrent int
	Logger        *logrus.Logger
}

var ErrNotStarted = errors.New("mirror manager not started")

type manager struct {
	cfg     Config
	uploads Uploads
	storage storage.Service

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[int64]*jobHandle
}

type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, uploads Uploads, storage storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:     cfg,
		uploads: uploads,
		storage: storage,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		active:  make(map[int64]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if strings.TrimSpace(m.cfg.Bucket) == "" {
		return fmt.Errorf("storage bucket is required")
	}
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()
	m.cfg.Logger.Infof("mirror manager started, bucket: %s, workers: %d", m.cfg.Bucket, m.cfg.MaxConcurrent)
	return nil
}

func (m *manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("mirror manager stopped")
}

func (m *manager) Enqueue(ctx context.Context, uploadID int64) error {
	upload, err := m.uploads.GetUpload(ctx, uploadID)
	if err != nil {
		return err
	}
	return m.spawn(*upload)
}

// Resume picks up uploads left stored or mid-mirror by a previous run.
func (m *manager) Resume(ctx context.Context) error {
	uploads, err := m.uploads.ListByStatuses(ctx,
		domain.UploadStatusStored,
		domain.UploadStatusMirroring,
	)
	if err != nil {
		return err
	}

	for i := range uploads {
		if err := m.spawn(uploads[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) spawn(upload domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return ErrNotStarted
	}
	if _, busy := m.active[upload.ID]; busy {
		return nil
	}

	jobCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active[upload.ID] = handle

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.unregister(upload.ID)
			close(handle.done)
		}()
		select {
		case <-jobCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.mirror(jobCtx, &upload)
		}
	}()
	return nil
}

func (m *manager) unregister(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// Cancel stops an in-flight mirror and waits for its worker to exit.
func (m *manager) Cancel(ctx context.Context, uploadID int64) error {
	m.mu.Lock()
	handle, ok := m.active[uploadID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) mirror(ctx context.Context, upload *domain.Upload) {
	logger := m.cfg.Logger.WithField("upload_id", upload.ID)
	switch upload.Status {
	case domain.UploadStatusMirrored:
		logger.Debug("upload already mirrored, skipping")
		return
	case domain.UploadStatusReceiving:
		logger.Debug("upload still receiving chunks, skipping")
		return
	}

	if err := m.uploads.UpdateStatus(ctx, upload.ID, domain.UploadStatusMirroring, nil); err != nil {
		logger.Errorf("set mirroring status: %v", err)
		return
	}
	upload.Status = domain.UploadStatusMirroring

	opts := storage.UploadOptions{
		Bucket: m.cfg.Bucket,
		Key:    ObjectKey(m.cfg.KeyPrefix, upload),
	}
	progressLogger := newUploadProgressLogger(logger)
	opts.ProgressCallback = func(done, total int64) {
		progressLogger(done, total)
	}

	logger.Infof("mirror started from %s", upload.LocalPath)

	dest, err := m.storage.UploadFile(ctx, upload.LocalPath, opts)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("mirror cancelled")
			return
		}
		m.fail(ctx, upload.ID, fmt.Errorf("upload: %w", err))
		return
	}

	if err := m.uploads.MarkMirrored(ctx, upload.ID, dest); err != nil {
		logger.Errorf("mark mirrored: %v", err)
		return
	}
	upload.Status = domain.UploadStatusMirrored

	logger.Infof("upload mirrored to %s", dest)
}

// ObjectKey is the object storage key for an upload.
func ObjectKey(prefix string, upload *domain.Upload) string {
	key := fmt.Sprintf("upload-%d/%s", upload.ID, upload.Name)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

// ObjectPrefix is the key prefix holding every object of an upload.
func ObjectPrefix(prefix string, uploadID int64) string {
	p := fmt.Sprintf("upload-%d/", uploadID)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		p = prefix + "/" + p
	}
	return p
}

func (m *manager) fail(ctx context.Context, uploadID int64, failErr error) {
	msg := failErr.Error()
	if err := m.uploads.UpdateStatus(ctx, uploadID, domain.UploadStatusFailed, &msg); err != nil {
		m.cfg.Logger.WithField("upload_id", uploadID).Errorf("persist failure status: %v", err)
	}
	m.cfg.Logger.WithField("upload_id", uploadID).Error(msg)
}

func newUploadProgressLogger(logger *logrus.Entry) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if total == 0 {
			if now.Sub(lastLog) < 500*time.Millisecond && done != 0 {
				return
			}
			lastLog = now
			logger.Infof("mirror progress: %s uploaded", formatBytes(done))
			return
		}

		percent := float64(done) / float64(total) * 100
		if now.Sub(lastLog) < 500*time.Millisecond && done != total {
			return
		}
		lastLog = now
		logger.Infof("mirror progress: %.1f%% (%s/%s)", percent, formatBytes(done), formatBytes(total))
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}

var _ Manager = (*manager)(nil)
