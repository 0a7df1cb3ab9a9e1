package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	uploadFileField = "file"
	uploadPathField = "path"
)

type uploadResponsePayload struct {
	URL string `json:"url"`
}

func (h *httpHandler) handleUpload(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	if c.Request.ContentLength > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile(uploadFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Info("multipart form rejected", zap.Error(err))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file received"})
		return
	}

	source, err := header.Open()
	if err != nil {
		h.respondServiceError(c, "failed to open upload", err)
		return
	}
	defer source.Close()
	data, err := io.ReadAll(source)
	if err != nil {
		h.respondServiceError(c, "failed to read upload", err)
		return
	}
	if data == nil {
		data = []byte{}
	}

	file, err := h.files.Upload(c.Request.Context(), files.UploadRequest{
		UserID:      userID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Path:        c.PostForm(uploadPathField),
		Data:        data,
	})
	if errors.Is(err, files.ErrNoFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file received"})
		return
	}
	if err != nil {
		h.respondServiceError(c, "upload failed", err)
		return
	}

	h.metrics.observeUpload(file.Type, file.SizeBytes)
	h.activity.Record(c.Request.Context(), userID, "Uploaded: "+file.Path)

	c.JSON(http.StatusOK, uploadResponsePayload{URL: file.URL})
}

func (h *httpHandler) handleListFiles(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	userFiles, err := h.files.List(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, "failed to list files", err)
		return
	}
	c.JSON(http.StatusOK, userFiles)
}

func (h *httpHandler) handleDeleteFile(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	externalID := strings.TrimSpace(c.Param("public_id"))

	_, err := h.files.Delete(c.Request.Context(), userID, externalID)
	if errors.Is(err, files.ErrFileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		h.respondServiceError(c, "file deletion failed", err)
		return
	}

	h.activity.Record(c.Request.Context(), userID, "File deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
