package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clipcast/services"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// GetFeed возвращает случайную порцию ленты для зрителя.
// Параметры: limit, exclude - id уже показанные в текущем скролле,
// через запятую.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	var sessionExclude []int64
	if excludeStr := c.Query("exclude"); excludeStr != "" {
		for _, part := range strings.Split(excludeStr, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				sessionExclude = append(sessionExclude, id)
			}
		}
	}

	batch, err := h.feed.GetFeed(c.Request.Context(), viewerID.(string), limit, sessionExclude)
	if err != nil {
		if errors.Is(err, services.ErrInvalidViewer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid viewer"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get feed"})
		return
	}

	var lastID int64
	if len(batch) > 0 {
		lastID = batch[len(batch)-1].ID
	}
	c.JSON(http.StatusOK, gin.H{"contents": batch, "last_id": lastID})
}

// GetOneContent - deep-link выборка конкретного контента по id
func (h *FeedHandler) GetOneContent(c *gin.Context) {
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

	content, err := h.feed.GetOneContent(c.Request.Context(), viewerID.(string), contentID)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get content"})
		return
	}
	c.JSON(http.StatusOK, content)
}
