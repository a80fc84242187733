package services

import (
	"context"
	"testing"

	"clipcast/db"
	"clipcast/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifyFixture(t *testing.T, cache *redis.Client) (*db.Manager, *NotifyService, *EngagementService) {
	m := newTestDB(t)
	notify := NewNotifyService(m, NewCounterCache(cache), nil, nil)
	engagement := NewEngagementService(m, notify)
	return m, notify, engagement
}

func notificationsFor(t *testing.T, m *db.Manager, viewerID string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, m.Read(context.Background()).Where("user_id = ?", viewerID).Find(&rows).Error)
	return rows
}

func TestSpotlightOnCreatesNotification(t *testing.T) {
	m, _, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))

	rows := notificationsFor(t, m, "author")
	require.Len(t, rows, 1)
	assert.Equal(t, "v1", rows[0].ActorID)
	assert.Equal(t, int64(10), rows[0].ContentID)
	assert.Equal(t, models.NotificationKindSpotlight, rows[0].Kind)
	assert.False(t, rows[0].IsRead)
}

func TestSpotlightOffRemovesNotification(t *testing.T) {
	m, _, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))
	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", false))

	assert.Empty(t, notificationsFor(t, m, "author"))
}

func TestSpotlightDoubleOnSingleNotification(t *testing.T) {
	m, _, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))
	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))

	assert.Len(t, notificationsFor(t, m, "author"), 1)
}

func TestSpotlightSelfDoesNotNotify(t *testing.T) {
	m, _, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "author", true))
	assert.Empty(t, notificationsFor(t, m, "author"))
}

func TestRetractWithoutMatchIsNotAnError(t *testing.T) {
	m, notify, _ := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	content := createTestContent(t, m, 10, "author")

	assert.NoError(t, notify.RetractSpotlight(ctx, content, "v1"))
}

func TestCommentNotifications(t *testing.T) {
	m, notify, _ := newNotifyFixture(t, nil)
	ctx := context.Background()
	comments := NewCommentService(m, notify)

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestUser(t, m, "v2")
	createTestContent(t, m, 10, "author")

	top, err := comments.CreateComment(ctx, "v1", 10, nil, "nice one")
	require.NoError(t, err)

	rows := notificationsFor(t, m, "author")
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationKindComment, rows[0].Kind)
	require.NotNil(t, rows[0].CommentID)
	assert.Equal(t, top.ID, *rows[0].CommentID)

	// ответ уведомляет и автора контента, и автора родительского комментария
	_, err = comments.CreateComment(ctx, "v2", 10, &top.ID, "agreed")
	require.NoError(t, err)

	assert.Len(t, notificationsFor(t, m, "author"), 2)
	assert.Len(t, notificationsFor(t, m, "v1"), 1)
}

func TestCommentSelfDoesNotNotify(t *testing.T) {
	m, notify, _ := newNotifyFixture(t, nil)
	ctx := context.Background()
	comments := NewCommentService(m, notify)

	createTestUser(t, m, "author")
	createTestContent(t, m, 10, "author")

	_, err := comments.CreateComment(ctx, "author", 10, nil, "bump")
	require.NoError(t, err)
	assert.Empty(t, notificationsFor(t, m, "author"))
}

func TestMarkReadAndList(t *testing.T) {
	m, notify, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))

	rows, err := notify.ListNotifications(ctx, "author", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, notify.MarkRead(ctx, "author", rows[0].ID))

	count, err := notify.UnreadCount(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCountCachedRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	m, notify, engagement := newNotifyFixture(t, cache)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestUser(t, m, "v2")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))
	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v2", true))

	count, err := notify.UnreadCount(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", false))

	count, err = notify.UnreadCount(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnreadCountFallsBackToDB(t *testing.T) {
	m, notify, engagement := newNotifyFixture(t, nil)
	ctx := context.Background()

	createTestUser(t, m, "author")
	createTestUser(t, m, "v1")
	createTestContent(t, m, 10, "author")

	require.NoError(t, engagement.SetSpotlight(ctx, 10, "v1", true))

	count, err := notify.UnreadCount(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCounterCacheClampsAtZero(t *testing.T) {
	cache := newTestCache(t)
	cc := NewCounterCache(cache)
	ctx := context.Background()

	cc.IncrementUnread(ctx, "u1", 2)
	cc.IncrementUnread(ctx, "u1", -5)

	count, ok := cc.GetUnread(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, int64(0), count)
}

func TestCounterCacheNilRedisIsNoop(t *testing.T) {
	cc := NewCounterCache(nil)
	ctx := context.Background()

	cc.IncrementUnread(ctx, "u1", 1)
	_, ok := cc.GetUnread(ctx, "u1")
	assert.False(t, ok)
}
