package domain

import "time"

type UploadStatus string

const (
	UploadStatusReceiving UploadStatus = "receiving"
	UploadStatusStored    UploadStatus = "stored"
	UploadStatusMirroring UploadStatus = "mirroring"
	UploadStatusMirrored  UploadStatus = "mirrored"
	UploadStatusFailed    UploadStatus = "failed"
)

// Upload represents a file assembled from chunks posted to the server.
type Upload struct {
	ID           int64
	Name         string
	Status       UploadStatus
	Size         int64
	Chunks       int
	LocalPath    string
	S3Location   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StoredAt     *time.Time
	MirroredAt   *time.Time
}

// Receiving reports whether more chunks may still be appended.
func (u Upload) Receiving() bool {
	return u.Status == UploadStatusReceiving
}
