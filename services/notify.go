package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"clipcast/db"
	"clipcast/models"
)

// NotifyService создает и снимает уведомления, производные от действий
// зрителей. Уведомление - best-effort состояние: его сбой никогда не
// является причиной отката счетчика, который его породил.
type NotifyService struct {
	db       *db.Manager
	counters *CounterCache
	broker   *Broker
	ws       *WSConnManager
}

func NewNotifyService(manager *db.Manager, counters *CounterCache, broker *Broker, ws *WSConnManager) *NotifyService {
	return &NotifyService{
		db:       manager,
		counters: counters,
		broker:   broker,
		ws:       ws,
	}
}

// NotifySpotlight создает уведомление автору контента об отметке.
// Собственные отметки автора уведомлений не порождают.
func (ns *NotifyService) NotifySpotlight(ctx context.Context, content *models.Content, actorID string) error {
	if content.UserID == actorID {
		return nil
	}

	notification := models.Notification{
		UserID:    content.UserID,
		ActorID:   actorID,
		ContentID: content.ID,
		Kind:      models.NotificationKindSpotlight,
		CreatedAt: time.Now(),
	}
	if err := ns.db.Write(ctx).Create(&notification).Error; err != nil {
		return wrapStoreErr("failed to create spotlight notification", err)
	}

	ns.counters.IncrementUnread(ctx, content.UserID, 1)
	ns.publish(ctx, &notification)
	return nil
}

// RetractSpotlight удаляет уведомление по тройке (автор, контент, актор).
// Отсутствие совпадения не ошибка: off мог прийти после чистки.
func (ns *NotifyService) RetractSpotlight(ctx context.Context, content *models.Content, actorID string) error {
	res := ns.db.Write(ctx).
		Where("user_id = ? AND actor_id = ? AND content_id = ? AND kind = ?",
			content.UserID, actorID, content.ID, models.NotificationKindSpotlight).
		Delete(&models.Notification{})
	if res.Error != nil {
		return wrapStoreErr("failed to retract spotlight notification", res.Error)
	}
	if res.RowsAffected > 0 {
		ns.counters.IncrementUnread(ctx, content.UserID, -res.RowsAffected)
	}
	return nil
}

// NotifyComment уведомляет автора контента о новом комментарии, а для
// ответа дополнительно автора родительского комментария.
func (ns *NotifyService) NotifyComment(ctx context.Context, content *models.Content, comment *models.Comment, parent *models.Comment) error {
	recipients := make([]string, 0, 2)
	if content.UserID != comment.UserID {
		recipients = append(recipients, content.UserID)
	}
	if parent != nil && parent.UserID != comment.UserID && parent.UserID != content.UserID {
		recipients = append(recipients, parent.UserID)
	}

	for _, recipient := range recipients {
		notification := models.Notification{
			UserID:    recipient,
			ActorID:   comment.UserID,
			ContentID: content.ID,
			CommentID: &comment.ID,
			Kind:      models.NotificationKindComment,
			CreatedAt: time.Now(),
		}
		if err := ns.db.Write(ctx).Create(&notification).Error; err != nil {
			return wrapStoreErr("failed to create comment notification", err)
		}
		ns.counters.IncrementUnread(ctx, recipient, 1)
		ns.publish(ctx, &notification)
	}
	return nil
}

// ListNotifications - читающая сторона этого пути записи. Полная
// пагинация остается за внешним API-слоем.
func (ns *NotifyService) ListNotifications(ctx context.Context, viewerID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var notifications []models.Notification
	err := ns.db.Read(ctx).
		Where("user_id = ?", viewerID).
		Order("id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, wrapStoreErr("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkRead помечает уведомление прочитанным
func (ns *NotifyService) MarkRead(ctx context.Context, viewerID string, notificationID int64) error {
	res := ns.db.Write(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, viewerID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return wrapStoreErr("failed to mark notification read", res.Error)
	}
	if res.RowsAffected > 0 {
		ns.counters.IncrementUnread(ctx, viewerID, -1)
	}
	return nil
}

// UnreadCount читает счетчик из кеша, при промахе пересчитывает из БД
// и прогревает кеш заново.
func (ns *NotifyService) UnreadCount(ctx context.Context, viewerID string) (int64, error) {
	if count, ok := ns.counters.GetUnread(ctx, viewerID); ok {
		return count, nil
	}

	var count int64
	err := ns.db.Read(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", viewerID, false).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreErr("failed to count unread notifications", err)
	}
	ns.counters.SetUnread(ctx, viewerID, count)
	return count, nil
}

// publish отдает событие push-коллаборатору через RabbitMQ, при его
// недоступности шлет напрямую в WebSocket. Любой сбой не фатален:
// строка уведомления уже записана и она источник истины.
func (ns *NotifyService) publish(ctx context.Context, notification *models.Notification) {
	event := NotifyEvent{
		NotificationID: notification.ID,
		UserID:         notification.UserID,
		ActorID:        notification.ActorID,
		ContentID:      notification.ContentID,
		Kind:           notification.Kind,
		CreatedAt:      notification.CreatedAt,
	}

	if ns.broker != nil {
		if err := ns.broker.PublishNotifyEvent(ctx, event); err == nil {
			return
		} else {
			log.Printf("WARN: rabbitmq publish failed, using ws fallback for user %s: %v", notification.UserID, err)
		}
	}

	if ns.ws != nil {
		if data, err := json.Marshal(event); err == nil {
			ns.ws.Send(notification.UserID, data)
		}
	}
}
