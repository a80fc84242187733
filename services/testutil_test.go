package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clipcast/db"
	"clipcast/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *db.Manager {
	t.Helper()

	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// in-memory sqlite живет в рамках одного соединения
	sqlDB, err := orm.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(orm))
	return db.NewManagerWithORM(orm)
}

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func createTestUser(t *testing.T, m *db.Manager, id string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       id,
		Nickname: fmt.Sprintf("%s_%s", gofakeit.Username(), id),
		Password: "x",
	}
	require.NoError(t, m.Write(context.Background()).Create(user).Error)
	return user
}

func createTestContent(t *testing.T, m *db.Manager, id int64, authorID string) *models.Content {
	t.Helper()
	content := &models.Content{
		ID:        id,
		UserID:    authorID,
		Title:     gofakeit.BookTitle(),
		MediaPath: fmt.Sprintf("media/%d.mp3", id),
		CreatedAt: time.Now(),
	}
	require.NoError(t, m.Write(context.Background()).Create(content).Error)
	return content
}

func recordPlay(t *testing.T, m *db.Manager, viewerID string, contentID int64) {
	t.Helper()
	row := &models.PlayHistory{UserID: viewerID, ContentID: contentID, CreatedAt: time.Now()}
	require.NoError(t, m.Write(context.Background()).Create(row).Error)
}

func setCursor(t *testing.T, m *db.Manager, viewerID string, contentID int64) {
	t.Helper()
	err := m.Write(context.Background()).
		Model(&models.User{}).
		Where("id = ?", viewerID).
		UpdateColumn("last_shown_content_id", contentID).Error
	require.NoError(t, err)
}

func createBlock(t *testing.T, m *db.Manager, blockerID, blockedID string) {
	t.Helper()
	block := &models.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: time.Now()}
	require.NoError(t, m.Write(context.Background()).Create(block).Error)
}
