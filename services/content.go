package services

import (
	"context"
	"strings"
	"time"

	"clipcast/db"
	"clipcast/models"
)

// ContentService - публикация контента, пополняющая каталог выдачи.
// MediaPath приходит от storage-коллаборатора и хранится как
// непрозрачная строка, никакой нормализации путей здесь нет.
type ContentService struct {
	db *db.Manager
}

func NewContentService(manager *db.Manager) *ContentService {
	return &ContentService{db: manager}
}

func (cs *ContentService) Publish(ctx context.Context, authorID string, content *models.Content) (*models.Content, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, ErrInvalidViewer
	}

	content.ID = 0
	content.UserID = authorID
	content.SpotlightNum = 0
	content.PlayNum = 0
	content.CreatedAt = time.Now()
	content.UpdatedAt = content.CreatedAt

	if err := cs.db.Write(ctx).Create(content).Error; err != nil {
		return nil, wrapStoreErr("failed to publish content", err)
	}
	return content, nil
}
