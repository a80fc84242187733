package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"clipcast/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Create добавляет комментарий или ответ
func (h *CommentHandler) Create(c *gin.Context) {
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

	var req struct {
		Body     string `json:"body" binding:"required"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), viewerID.(string), contentID, req.ParentID, req.Body)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// List возвращает комментарии контента
func (h *CommentHandler) List(c *gin.Context) {
	contentID, err := strconv.ParseInt(c.Param("content_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content ID"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	comments, err := h.comments.ListComments(c.Request.Context(), contentID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
