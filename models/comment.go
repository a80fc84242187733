package models

import "time"

// Comment - комментарий к контенту, ParentID задан для ответов
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID int64     `gorm:"index" json:"content_id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	ParentID  *int64    `gorm:"index" json:"parent_id,omitempty"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
