package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"clipcast/db"
	"clipcast/models"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DEFAULT_BATCH_SIZE = 5   // размер выдачи по умолчанию
	MAX_BATCH_SIZE     = 50  // верхняя граница размера выдачи
	SEEN_CACHE_MAX     = 200 // сколько показанных id держим в кеше
	SEEN_KEY_PREFIX    = "seen:"
	SEEN_CACHE_TTL     = 24 * time.Hour
)

var (
	feedDrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_draws_total",
			Help: "Total number of feed draws",
		},
		[]string{"outcome"},
	)

	feedBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_batch_size",
			Help:    "Number of contents returned per feed draw",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)
)

// FeedService выбирает следующую порцию контента для зрителя.
// Выбор равномерно случайный по допустимому множеству: защита от
// повторов и от заблокированных авторов строится на исключении,
// а не на ранжировании.
type FeedService struct {
	db        *db.Manager
	cache     *redis.Client
	exclusion *ExclusionService
	batchSize int
}

func NewFeedService(manager *db.Manager, cache *redis.Client, exclusion *ExclusionService) *FeedService {
	return &FeedService{
		db:        manager,
		cache:     cache,
		exclusion: exclusion,
		batchSize: DEFAULT_BATCH_SIZE,
	}
}

// SetBatchSize переопределяет размер выдачи по умолчанию из конфигурации
func (fs *FeedService) SetBatchSize(n int) {
	if n > 0 && n <= MAX_BATCH_SIZE {
		fs.batchSize = n
	}
}

const feedSelect = `contents.id, contents.user_id, u.nickname AS user_nickname, u.icon_path AS user_icon_path,
	contents.media_path, contents.link, contents.title, contents.tag, contents.is_text,
	contents.spotlight_num, contents.play_num,
	COALESCE(cu.spotlight_flag, FALSE) AS spotlight_flag,
	(SELECT COUNT(*) FROM comments cm WHERE cm.content_id = contents.id) AS comment_num,
	contents.created_at`

// GetFeed возвращает до limit записей, выбранных случайно из контента
// вне множества исключения. Нехватка строк не ошибка: отдаем сколько
// есть, пустая выдача означает "показывать пока нечего".
func (fs *FeedService) GetFeed(ctx context.Context, viewerID string, limit int, sessionExclude []int64) ([]models.FeedContent, error) {
	if limit <= 0 {
		limit = fs.batchSize
	}
	if limit > MAX_BATCH_SIZE {
		limit = MAX_BATCH_SIZE
	}

	excluded, err := fs.exclusion.BuildExclusionSet(ctx, viewerID, sessionExclude)
	if err != nil {
		return nil, err
	}

	query := fs.db.Read(ctx).
		Model(&models.Content{}).
		Select(feedSelect).
		Joins("JOIN users u ON u.id = contents.user_id").
		Joins("LEFT JOIN content_users cu ON cu.content_id = contents.id AND cu.user_id = ?", viewerID).
		Order("RANDOM()").
		Limit(limit)

	if len(excluded) > 0 {
		query = query.Where("contents.id NOT IN ?", excluded)
	}

	var batch []models.FeedContent
	if err := query.Scan(&batch).Error; err != nil {
		feedDrawsTotal.WithLabelValues("error").Inc()
		return nil, wrapStoreErr("failed to draw feed batch", err)
	}

	feedBatchSize.Observe(float64(len(batch)))
	if len(batch) == 0 {
		feedDrawsTotal.WithLabelValues("empty").Inc()
		return []models.FeedContent{}, nil
	}
	feedDrawsTotal.WithLabelValues("ok").Inc()

	// Курсор двигаем на последний id выдачи: смежные скроллы не
	// повторяются, пока окно истории не догонит.
	lastID := batch[len(batch)-1].ID
	if err := fs.UpdateLastShown(ctx, viewerID, lastID); err != nil {
		log.Printf("WARN: failed to update last shown cursor for viewer %s: %v", viewerID, err)
	}

	fs.rememberSeen(context.Background(), viewerID, batch)

	return batch, nil
}

// GetOneContent - точечная выборка для deep-link (переход из уведомления
// или по ссылке). Исключение не применяется, контент заблокированного
// автора может вернуться - фильтрация остается на слое представления.
func (fs *FeedService) GetOneContent(ctx context.Context, viewerID string, contentID int64) (*models.FeedContent, error) {
	var rows []models.FeedContent
	err := fs.db.Read(ctx).
		Model(&models.Content{}).
		Select(feedSelect).
		Joins("JOIN users u ON u.id = contents.user_id").
		Joins("LEFT JOIN content_users cu ON cu.content_id = contents.id AND cu.user_id = ?", viewerID).
		Where("contents.id = ?", contentID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreErr("failed to get content", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("content %d: %w", contentID, ErrContentNotFound)
	}
	return &rows[0], nil
}

// UpdateLastShown перезаписывает курсор зрителя. Чистое присваивание,
// последняя запись выигрывает, истории нет.
func (fs *FeedService) UpdateLastShown(ctx context.Context, viewerID string, contentID int64) error {
	res := fs.db.Write(ctx).
		Model(&models.User{}).
		Where("id = ?", viewerID).
		UpdateColumn("last_shown_content_id", contentID)
	if res.Error != nil {
		return wrapStoreErr("failed to update cursor", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("viewer %s: %w", viewerID, ErrInvalidViewer)
	}
	return nil
}

func seenKey(viewerID string) string {
	return SEEN_KEY_PREFIX + viewerID
}

// rememberSeen добавляет выданные id в seen-кеш. Best effort: без Redis
// защита от повторов держится на курсоре и истории прослушиваний.
func (fs *FeedService) rememberSeen(ctx context.Context, viewerID string, batch []models.FeedContent) {
	if fs.cache == nil || len(batch) == 0 {
		return
	}

	key := seenKey(viewerID)
	pipe := fs.cache.Pipeline()

	now := float64(time.Now().UnixNano())
	for i, row := range batch {
		pipe.ZAdd(ctx, key, &redis.Z{
			Score:  now + float64(i),
			Member: strconv.FormatInt(row.ID, 10),
		})
	}
	pipe.ZRemRangeByRank(ctx, key, 0, -SEEN_CACHE_MAX-1)
	pipe.Expire(ctx, key, SEEN_CACHE_TTL)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("WARN: failed to cache seen ids for viewer %s: %v", viewerID, err)
	}
}
