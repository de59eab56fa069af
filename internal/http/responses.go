package http

import (
	"time"

	"hunter-web/internal/domain"
	"hunter-web/internal/storage"
)

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

type UploadResponse struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Status       domain.UploadStatus `json:"status"`
	Size         int64               `json:"size"`
	Chunks       int                 `json:"chunks"`
	S3Location   string              `json:"s3_location"`
	ErrorMessage string              `json:"error_message"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	StoredAt     *string             `json:"stored_at,omitempty"`
	MirroredAt   *string             `json:"mirrored_at,omitempty"`
}

func uploadToResponse(upload domain.Upload) UploadResponse {
	resp := UploadResponse{
		ID:           upload.ID,
		Name:         upload.Name,
		Status:       upload.Status,
		Size:         upload.Size,
		Chunks:       upload.Chunks,
		S3Location:   upload.S3Location,
		ErrorMessage: upload.ErrorMessage,
		CreatedAt:    upload.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    upload.UpdatedAt.Format(time.RFC3339),
	}
	if upload.StoredAt != nil {
		v := upload.StoredAt.Format(time.RFC3339)
		resp.StoredAt = &v
	}
	if upload.MirroredAt != nil {
		v := upload.MirroredAt.Format(time.RFC3339)
		resp.MirroredAt = &v
	}
	return resp
}

func uploadsToResponse(uploads []domain.Upload) []UploadResponse {
	resp := make([]UploadResponse, len(uploads))
	for i := range uploads {
		resp[i] = uploadToResponse(uploads[i])
	}
	return resp
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
