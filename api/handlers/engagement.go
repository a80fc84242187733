package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"clipcast/services"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	engagement *services.EngagementService
}

func NewEngagementHandler(engagement *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement}
}

// Spotlight включает/выключает отметку зрителя на контенте
func (h *EngagementHandler) Spotlight(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		On *bool `json:"on" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contentID, err := strconv.ParseInt(c.Param("content_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content ID"})
		return
	}

	err = h.engagement.SetSpotlight(c.Request.Context(), contentID, viewerID.(string), *req.On)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle spotlight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Spotlight updated"})
}

// Play фиксирует проигрывание: счетчик +1 и строка истории для окна
// исключения. Сбой записи истории не отменяет засчитанное проигрывание.
func (h *EngagementHandler) Play(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	contentID, err := strconv.ParseInt(c.Param("content_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content ID"})
		return
	}

	if err := h.engagement.IncrementPlay(c.Request.Context(), contentID); err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record play"})
		return
	}

	if err := h.engagement.RecordPlayHistory(c.Request.Context(), viewerID.(string), contentID); err != nil {
		log.Printf("WARN: failed to record play history for viewer %s: %v", viewerID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Play recorded"})
}
