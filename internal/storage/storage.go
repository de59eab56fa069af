package storage

import (
	"context"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket           string
	Key              string
	ProgressCallback func(done, total int64)
}

// Service mirrors stored uploads to remote object storage.
type Service interface {
	UploadFile(ctx context.Context, localPath string, opts UploadOptions) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// Location renders the s3:// URI recorded for a mirrored object.
func Location(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// ParseLocation splits an s3:// URI into bucket and key.
func ParseLocation(location string) (bucket, key string, ok bool) {
	const scheme = "s3://"
	if len(location) <= len(scheme) || location[:len(scheme)] != scheme {
		return "", "", false
	}
	rest := location[len(scheme):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			if i == 0 || i == len(rest)-1 {
				return "", "", false
			}
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}
