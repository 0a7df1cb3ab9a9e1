package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	activityEventEntry     = "activity"
	activityEventReady     = "ready"
	activityEventHeartbeat = "heartbeat"
)

func (h *httpHandler) handleListLogs(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	entries, err := h.activity.List(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, "failed to list activity", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleClearLogs(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if err := h.activity.Clear(c.Request.Context(), userID); err != nil {
		h.respondServiceError(c, "failed to clear activity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logs cleared successfully"})
}

func (h *httpHandler) handleActivityStream(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	ctx := c.Request.Context()

	entries, cleanup := h.stream.Subscribe(ctx, userID)
	defer cleanup()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(activityEventReady, gin.H{"userId": userID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case entry, ok := <-entries:
			if !ok {
				return false
			}
			c.SSEvent(activityEventEntry, entry)
			return true
		case tick := <-heartbeat.C:
			c.SSEvent(activityEventHeartbeat, gin.H{"time": tick.UTC()})
			return true
		}
	})
}
