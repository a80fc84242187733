package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"clipcast/db"
	"clipcast/models"

	"gorm.io/gorm"
)

// CommentService - плоские insert/lookup по комментариям. Логики выбора
// здесь нет, сервис существует ради пути уведомлений и счетчика
// комментариев в ленте.
type CommentService struct {
	db     *db.Manager
	notify *NotifyService
}

func NewCommentService(manager *db.Manager, notify *NotifyService) *CommentService {
	return &CommentService{
		db:     manager,
		notify: notify,
	}
}

// CreateComment сохраняет комментарий и уведомляет автора контента,
// для ответа - еще и автора родительского комментария.
func (cs *CommentService) CreateComment(ctx context.Context, viewerID string, contentID int64, parentID *int64, body string) (*models.Comment, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, ErrInvalidViewer
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("comment body is empty")
	}

	var content models.Content
	err := cs.db.Read(ctx).First(&content, contentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content %d: %w", contentID, ErrContentNotFound)
		}
		return nil, wrapStoreErr("failed to load content", err)
	}

	var parent *models.Comment
	if parentID != nil {
		var p models.Comment
		err := cs.db.Read(ctx).
			Where("id = ? AND content_id = ?", *parentID, contentID).
			First(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent comment %d not found", *parentID)
			}
			return nil, wrapStoreErr("failed to load parent comment", err)
		}
		parent = &p
	}

	comment := models.Comment{
		ContentID: contentID,
		UserID:    viewerID,
		ParentID:  parentID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := cs.db.Write(ctx).Create(&comment).Error; err != nil {
		return nil, wrapStoreErr("failed to create comment", err)
	}

	if cs.notify != nil {
		if err := cs.notify.NotifyComment(ctx, &content, &comment, parent); err != nil {
			log.Printf("WARN: consistency: comment notification for content %d: %v", contentID, err)
		}
	}
	return &comment, nil
}

// ListComments возвращает комментарии контента в порядке создания
func (cs *CommentService) ListComments(ctx context.Context, contentID int64, limit int) ([]models.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var comments []models.Comment
	err := cs.db.Read(ctx).
		Where("content_id = ?", contentID).
		Order("id ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, wrapStoreErr("failed to list comments", err)
	}
	return comments, nil
}
