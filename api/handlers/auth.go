package handlers

import (
	"net/http"

	"clipcast/models"
	"clipcast/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *services.AccountService
	content  *services.ContentService
}

func NewAuthHandler(accounts *services.AccountService, content *services.ContentService) *AuthHandler {
	return &AuthHandler{accounts: accounts, content: content}
}

type RegisterRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		if err.Error() == "user already exists" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "nickname": user.Nickname})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, user, err := h.accounts.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		if err.Error() == "invalid nickname" || err.Error() == "invalid password" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "user_id": user.ID})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := h.accounts.Logout(c.Request.Context(), viewerID.(string)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

type BlockRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *AuthHandler) Block(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.accounts.BlockUser(c.Request.Context(), viewerID.(string), req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

func (h *AuthHandler) Unblock(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.accounts.UnblockUser(c.Request.Context(), viewerID.(string), req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}

type PublishRequest struct {
	MediaPath string `json:"media_path"`
	Link      string `json:"link"`
	Title     string `json:"title" binding:"required"`
	Tag       string `json:"tag"`
	IsText    bool   `json:"is_text"`
}

// Publish добавляет контент в каталог выдачи
func (h *AuthHandler) Publish(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	content, err := h.content.Publish(c.Request.Context(), viewerID.(string), &models.Content{
		MediaPath: req.MediaPath,
		Link:      req.Link,
		Title:     req.Title,
		Tag:       req.Tag,
		IsText:    req.IsText,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish content"})
		return
	}
	c.JSON(http.StatusCreated, content)
}
