package models

import "time"

const (
	NotificationKindSpotlight = "spotlight"
	NotificationKindComment   = "comment"
)

// Notification - производное состояние от действий зрителей.
// Источник истины - счетчики и флаги, уведомления best-effort.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	ActorID   string    `gorm:"size:64;index" json:"actor_id"`
	ContentID int64     `gorm:"index" json:"content_id"`
	CommentID *int64    `json:"comment_id,omitempty"`
	Kind      string    `gorm:"size:20" json:"kind"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
