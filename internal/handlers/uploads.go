package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"anonchat/internal/storage"
)

// UploadHandler stores media attachments and returns their public URLs.
type UploadHandler struct {
	store   storage.BlobStore
	maxSize int64
}

// NewUploadHandler builds an UploadHandler. maxSize caps a single upload
// in bytes.
func NewUploadHandler(store storage.BlobStore, maxSize int64) *UploadHandler {
	return &UploadHandler{store: store, maxSize: maxSize}
}

var allowedUploadExts = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".webm": "audio",
	".ogg":  "audio",
	".mp3":  "audio",
	".m4a":  "audio",
}

// Upload accepts one multipart file under the "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if file.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	kind, ok := allowedUploadExts[ext]
	if !ok {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read file"})
		return
	}
	defer src.Close()

	url, err := h.store.Upload(file.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url, "kind": kind})
}
