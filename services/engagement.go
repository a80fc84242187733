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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var engagementOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "engagement_ops_total",
		Help: "Total number of engagement counter mutations",
	},
	[]string{"op", "status"},
)

// EngagementService - атомарные мутации счетчиков контента и флагов
// зрителя. Уведомления создаются как производный побочный эффект и
// никогда не откатывают мутацию счетчика.
type EngagementService struct {
	db     *db.Manager
	notify *NotifyService
}

func NewEngagementService(manager *db.Manager, notify *NotifyService) *EngagementService {
	return &EngagementService{
		db:     manager,
		notify: notify,
	}
}

// SetSpotlight включает или выключает отметку зрителя. Флаг и агрегат
// меняются в одной транзакции. Инкремент выполняется только при
// реальном переходе флага, поэтому двойной тап дает ровно одну
// единицу, а декремент ограничен нулем.
func (es *EngagementService) SetSpotlight(ctx context.Context, contentID int64, viewerID string, on bool) error {
	if strings.TrimSpace(viewerID) == "" {
		return ErrInvalidViewer
	}

	var content models.Content
	err := es.db.Read(ctx).First(&content, contentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("content %d: %w", contentID, ErrContentNotFound)
		}
		return wrapStoreErr("failed to load content", err)
	}

	changed := false
	err = es.db.Write(ctx).Transaction(func(tx *gorm.DB) error {
		if on {
			return es.spotlightOn(tx, contentID, viewerID, &changed)
		}
		return es.spotlightOff(tx, contentID, viewerID, &changed)
	})
	if err != nil {
		engagementOpsTotal.WithLabelValues("spotlight", "error").Inc()
		return wrapStoreErr("failed to toggle spotlight", err)
	}
	engagementOpsTotal.WithLabelValues("spotlight", "ok").Inc()

	// Побочный эффект после успешной мутации. Сбой здесь - warning,
	// состояние счетчика остается источником истины.
	if changed && es.notify != nil {
		if on {
			if err := es.notify.NotifySpotlight(ctx, &content, viewerID); err != nil {
				log.Printf("WARN: consistency: spotlight notification for content %d: %v", contentID, err)
			}
		} else {
			if err := es.notify.RetractSpotlight(ctx, &content, viewerID); err != nil {
				log.Printf("WARN: consistency: spotlight retraction for content %d: %v", contentID, err)
			}
		}
	}
	return nil
}

func (es *EngagementService) spotlightOn(tx *gorm.DB, contentID int64, viewerID string, changed *bool) error {
	// Сначала переводим существующую строку false -> true
	res := tx.Model(&models.ContentUser{}).
		Where("content_id = ? AND user_id = ? AND spotlight_flag = ?", contentID, viewerID, false).
		UpdateColumn("spotlight_flag", true)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		// Строки нет либо флаг уже включен. Конфликт на (content, user)
		// разрешает хранилище, гонки read-then-write нет.
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.ContentUser{
			ContentID:     contentID,
			UserID:        viewerID,
			SpotlightFlag: true,
		})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return nil // флаг уже стоял
		}
	}

	*changed = true
	return tx.Model(&models.Content{}).
		Where("id = ?", contentID).
		UpdateColumn("spotlight_num", gorm.Expr("spotlight_num + 1")).Error
}

func (es *EngagementService) spotlightOff(tx *gorm.DB, contentID int64, viewerID string, changed *bool) error {
	res := tx.Model(&models.ContentUser{}).
		Where("content_id = ? AND user_id = ? AND spotlight_flag = ?", contentID, viewerID, true).
		UpdateColumn("spotlight_flag", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // выключать нечего
	}

	*changed = true
	// Пол на нуле: повторный off или рассинхрон не уводят агрегат в минус
	return tx.Model(&models.Content{}).
		Where("id = ? AND spotlight_num > 0", contentID).
		UpdateColumn("spotlight_num", gorm.Expr("spotlight_num - 1")).Error
}

// IncrementPlay - безусловный +1 к play_num. Дедупликации по зрителю
// нет, повторные прослушивания засчитываются.
func (es *EngagementService) IncrementPlay(ctx context.Context, contentID int64) error {
	res := es.db.Write(ctx).
		Model(&models.Content{}).
		Where("id = ?", contentID).
		UpdateColumn("play_num", gorm.Expr("play_num + 1"))
	if res.Error != nil {
		engagementOpsTotal.WithLabelValues("play", "error").Inc()
		return wrapStoreErr("failed to increment play count", res.Error)
	}
	if res.RowsAffected == 0 {
		engagementOpsTotal.WithLabelValues("play", "error").Inc()
		return fmt.Errorf("content %d: %w", contentID, ErrContentNotFound)
	}
	engagementOpsTotal.WithLabelValues("play", "ok").Inc()
	return nil
}

// RecordPlayHistory добавляет строку истории, если последняя строка
// зрителя не тот же контент. Дедупликация узкая: только подряд идущие
// повторы, та же пара позже снова допустима.
func (es *EngagementService) RecordPlayHistory(ctx context.Context, viewerID string, contentID int64) error {
	if strings.TrimSpace(viewerID) == "" {
		return ErrInvalidViewer
	}

	var last models.PlayHistory
	err := es.db.Read(ctx).
		Where("user_id = ?", viewerID).
		Order("id DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return wrapStoreErr("failed to read last play", err)
	}
	if err == nil && last.ContentID == contentID {
		return nil
	}

	row := models.PlayHistory{
		UserID:    viewerID,
		ContentID: contentID,
		CreatedAt: time.Now(),
	}
	if err := es.db.Write(ctx).Create(&row).Error; err != nil {
		return wrapStoreErr("failed to record play history", err)
	}
	return nil
}
