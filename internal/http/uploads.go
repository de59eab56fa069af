package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hunter-web/internal/domain"
	"hunter-web/internal/mirror"
	"hunter-web/internal/service"
	"hunter-web/internal/storage"
)

// appendChunk accepts one multipart chunk of a named upload.
func (h *Handler) appendChunk(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	final, err := strconv.ParseBool(c.DefaultPostForm("final", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag final"})
		return
	}

	chunk, closeChunk, err := chunkReader(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeChunk()

	upload, err := h.uploads.AppendChunk(c.Request.Context(), name, chunk, final)
	if err != nil {
		h.uploadError(c, err)
		return
	}

	if upload.Status == domain.UploadStatusStored && h.mirror != nil {
		if err := h.mirror.Enqueue(c.Request.Context(), upload.ID); err != nil {
			h.logger.WithField("upload_id", upload.ID).Warnf("enqueue mirror: %v", err)
		}
	}

	c.JSON(http.StatusOK, uploadToResponse(*upload))
}

// chunkReader takes the chunk from a file part, falling back to a plain
// form field.
func chunkReader(c *gin.Context) (io.Reader, func(), error) {
	if fh, err := c.FormFile("chunk"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open chunk: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if value, ok := c.GetPostForm("chunk"); ok {
		return strings.NewReader(value), func() {}, nil
	}
	return nil, nil, errors.New("chunk is required")
}

func (h *Handler) listUploads(c *gin.Context) {
	uploads, err := h.uploads.ListUploads(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, uploadsToResponse(uploads))
}

func (h *Handler) listUploadsByStatus(c *gin.Context) {
	status := domain.UploadStatus(c.Query("status"))
	uploads, err := h.uploads.ListByStatuses(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, uploadsToResponse(uploads))
}

func (h *Handler) getUpload(c *gin.Context) {
	id, ok := uploadID(c)
	if !ok {
		return
	}

	upload, err := h.uploads.GetUpload(c.Request.Context(), id)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadToResponse(*upload))
}

// uploadURL presigns a download link for a mirrored upload.
func (h *Handler) uploadURL(c *gin.Context) {
	id, ok := uploadID(c)
	if !ok {
		return
	}
	if !h.storageEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	upload, err := h.uploads.GetUpload(c.Request.Context(), id)
	if err != nil {
		h.uploadError(c, err)
		return
	}
	if upload.Status != domain.UploadStatusMirrored {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("upload is %s, not mirrored", upload.Status)})
		return
	}
	bucket, key, ok := storage.ParseLocation(upload.S3Location)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid s3 location"})
		return
	}

	url, err := h.storage.GetObjectURL(c.Request.Context(), bucket, key, h.urlTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_at": time.Now().Add(h.urlTTL).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) deleteUpload(c *gin.Context) {
	id, ok := uploadID(c)
	if !ok {
		return
	}

	deleteRemote, err := strconv.ParseBool(c.DefaultQuery("delete_remote", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag delete_remote"})
		return
	}

	upload, err := h.uploads.GetUpload(c.Request.Context(), id)
	if err != nil {
		h.uploadError(c, err)
		return
	}

	var warnings []string
	if h.mirror != nil {
		cancelCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		if err := h.mirror.Cancel(cancelCtx, upload.ID); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			warnings = append(warnings, fmt.Sprintf("cancel mirror: %v", err))
		}
	}

	if deleteRemote {
		if !h.storageEnabled() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storage service not configured"})
			return
		}
		// a failed mirror may have written objects without recording a location
		prefix := mirror.ObjectPrefix(h.keyPrefix, upload.ID)
		if upload.S3Location != "" {
			prefix, err = remotePrefix(upload.S3Location, h.bucket)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		remoteCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		if err := h.storage.DeletePrefix(remoteCtx, h.bucket, prefix); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete remote data: %v", err))
		}
	}

	if err := h.uploads.DeleteUpload(c.Request.Context(), upload.ID); err != nil {
		if !errors.Is(err, service.ErrLocalCleanup) {
			h.uploadError(c, err)
			return
		}
		warnings = append(warnings, err.Error())
	}

	resp := gin.H{"deleted": upload.ID}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// remotePrefix is the directory-style prefix holding a mirrored object.
func remotePrefix(location, bucket string) (string, error) {
	locBucket, key, ok := storage.ParseLocation(location)
	if !ok {
		return "", fmt.Errorf("invalid s3 location")
	}
	if bucket != "" && locBucket != bucket {
		return "", fmt.Errorf("s3 bucket mismatch")
	}
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return key, nil
	}
	return dir + "/", nil
}

func uploadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUploadName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUploadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
