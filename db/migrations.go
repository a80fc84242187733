package db

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureIndexes создает индексы, которые не выражаются тегами моделей.
// Окно исключения читает последние N строк истории, поэтому нужен
// составной индекс по (user_id, id DESC).
func EnsureIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_play_history_user_recent ON play_history (user_id, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_match ON notifications (user_id, content_id, actor_id, kind);`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
