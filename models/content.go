package models

import "time"

// Content - опубликованный контент. Счетчики spotlight_num и play_num
// мутируются только через EngagementService.
type Content struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"size:64;index" json:"user_id"`
	MediaPath    string    `gorm:"size:512" json:"media_path"`
	Link         string    `gorm:"size:512" json:"link"`
	Title        string    `gorm:"size:255" json:"title"`
	Tag          string    `gorm:"size:255" json:"tag"`
	IsText       bool      `gorm:"default:false" json:"is_text"`
	SpotlightNum int64     `gorm:"default:0" json:"spotlight_num"`
	PlayNum      int64     `gorm:"default:0" json:"play_num"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Content) TableName() string {
	return "contents"
}

// ContentUser - флаги зрителя по конкретному контенту. Строка создается
// лениво при первом взаимодействии, уникальность по паре (content, user).
type ContentUser struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID     int64  `gorm:"index:content_user_idx,unique" json:"content_id"`
	UserID        string `gorm:"size:64;index:content_user_idx,unique" json:"user_id"`
	SpotlightFlag bool   `gorm:"default:false" json:"spotlight_flag"`
	BookmarkFlag  bool   `gorm:"default:false" json:"bookmark_flag"`
	NotifiedFlag  bool   `gorm:"default:false" json:"notified_flag"`
}

func (ContentUser) TableName() string {
	return "content_users"
}

// PlayHistory - append-only лог прослушиваний. Повторы одной пары
// (user, content) допустимы, это история, а не уникальная связь.
type PlayHistory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	ContentID int64     `gorm:"index" json:"content_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PlayHistory) TableName() string {
	return "play_history"
}

// FeedContent - строка ленты с аннотациями для конкретного зрителя
type FeedContent struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	UserNickname  string    `json:"user_nickname"`
	UserIconPath  string    `json:"user_icon_path,omitempty"`
	MediaPath     string    `json:"media_path"`
	Link          string    `json:"link"`
	Title         string    `json:"title"`
	Tag           string    `json:"tag"`
	IsText        bool      `json:"is_text"`
	SpotlightNum  int64     `json:"spotlight_num"`
	PlayNum       int64     `json:"play_num"`
	CommentNum    int64     `json:"comment_num"`
	SpotlightFlag bool      `json:"spotlight_flag"`
	CreatedAt     time.Time `json:"created_at"`
}

// FeedResponse - ответ API для ленты
type FeedResponse struct {
	Contents []FeedContent `json:"contents"`
	LastID   int64         `json:"last_id,omitempty"`
}
