package models

import (
	"time"
)

// User - аккаунт зрителя. ID генерируется при регистрации и дальше
// используется как непрозрачная строка.
type User struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	Nickname           string    `gorm:"size:60;uniqueIndex" json:"nickname"`
	Password           string    `gorm:"size:255" json:"-"`
	IconPath           string    `gorm:"size:512" json:"icon_path"`
	LastShownContentID *int64    `json:"last_shown_content_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type UserTokens struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"size:64;index:user_token_idx,unique" json:"user_id"`
	Token  string `gorm:"size:255;index:user_token_idx,unique" json:"token"`
}

func (UserTokens) TableName() string {
	return "user_tokens"
}

// Block - направленная запись блокировки. Исключение из ленты всегда
// симметрично: учитываются оба направления.
type Block struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerID string    `gorm:"size:64;index:block_pair_idx,unique" json:"blocker_id"`
	BlockedID string    `gorm:"size:64;index:block_pair_idx,unique" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Block) TableName() string {
	return "blocks"
}
