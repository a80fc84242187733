package handlers

import (
	"net/http"
	"strconv"

	"clipcast/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notify *services.NotifyService
}

func NewNotificationHandler(notify *services.NotifyService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

// List возвращает последние уведомления зрителя
func (h *NotificationHandler) List(c *gin.Context) {
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

	notifications, err := h.notify.ListNotifications(c.Request.Context(), viewerID.(string), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead помечает уведомление прочитанным
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notificationID, err := strconv.ParseInt(c.Param("notification_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notify.MarkRead(c.Request.Context(), viewerID.(string), notificationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// UnreadCount возвращает число непрочитанных уведомлений
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, err := h.notify.UnreadCount(c.Request.Context(), viewerID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
