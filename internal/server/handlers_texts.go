package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/texts"
	"github.com/gin-gonic/gin"
)

type saveTextPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleSaveText(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request saveTextPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No text provided"})
		return
	}

	_, err := h.texts.Save(c.Request.Context(), userID, request.Content)
	if errors.Is(err, texts.ErrEmptyContent) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No text provided"})
		return
	}
	if err != nil {
		h.respondServiceError(c, "failed to save text", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Text saved"})
}

func (h *httpHandler) handleListTexts(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	userTexts, err := h.texts.List(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, "failed to list texts", err)
		return
	}
	c.JSON(http.StatusOK, userTexts)
}

func (h *httpHandler) handleDeleteText(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	textID := strings.TrimSpace(c.Param("id"))
	if textID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Text ID missing"})
		return
	}

	err := h.texts.Delete(c.Request.Context(), userID, textID)
	if errors.Is(err, texts.ErrMissingTextID) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Text ID missing"})
		return
	}
	if err != nil {
		h.respondServiceError(c, "failed to delete text", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
