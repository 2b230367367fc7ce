package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"folio/models"
	"folio/services/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadHandler accepts media files for sections and reports their progress.
type UploadHandler struct {
	Manager *storage.UploadManager
	// Uploads outlive the request that started them.
	BaseCtx context.Context
}

func NewUploadHandler(ctx context.Context, m *storage.UploadManager) *UploadHandler {
	return &UploadHandler{Manager: m, BaseCtx: ctx}
}

// UploadFilesHandler starts one upload per multipart "files" entry. With
// ?wait=true it blocks until every upload finishes and returns their results.
func (h *UploadHandler) UploadFilesHandler(c *gin.Context) {
	category := c.Param("category")
	if err := storage.CheckCategory(category); err != nil {
		respondError(c, "invalid upload category", err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files not provided", "detail": err.Error()})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files not provided"})
		return
	}

	files := make(map[string]models.UploadFile, len(headers))
	for i, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file", "detail": err.Error()})
			return
		}
		key := storage.NewKey()
		if keys := form.Value["key"]; i < len(keys) && keys[i] != "" {
			key = keys[i]
		}
		files[key] = models.UploadFile{Name: fh.Filename, Category: category, Data: data}
	}

	if c.Query("wait") == "true" {
		results, err := h.Manager.UploadAll(c.Request.Context(), files)
		status := http.StatusOK
		if err != nil {
			getLogger(c).Warn("some uploads failed", zap.Error(err))
			status = http.StatusMultiStatus
		}
		c.JSON(status, gin.H{"uploads": results})
		return
	}

	started := make(map[string]models.UploadProgress, len(files))
	for key, file := range files {
		if _, err := h.Manager.Start(h.BaseCtx, key, file); err != nil {
			respondError(c, "failed to start upload", err)
			return
		}
		started[key], _ = h.Manager.Status(key)
	}
	c.JSON(http.StatusAccepted, gin.H{"uploads": started})
}

// UploadStatusHandler reports the latest progress of one upload.
func (h *UploadHandler) UploadStatusHandler(c *gin.Context) {
	p, ok := h.Manager.Status(c.Param("key"))
	if !ok {
		respondError(c, "upload not found", storage.ErrUploadNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RetryUploadHandler restarts a failed upload.
func (h *UploadHandler) RetryUploadHandler(c *gin.Context) {
	key := c.Param("key")
	if _, err := h.Manager.Retry(h.BaseCtx, key); err != nil {
		respondError(c, "failed to retry upload", err)
		return
	}
	p, _ := h.Manager.Status(key)
	c.JSON(http.StatusAccepted, p)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
