package services

import (
	"context"
	"strconv"
	"strings"

	"clipcast/db"
	"clipcast/models"

	"github.com/go-redis/redis/v8"
)

const DEFAULT_HISTORY_WINDOW = 50 // последних прослушиваний в окне исключения

// ExclusionService вычисляет множество content id, которые нельзя
// показывать зрителю в ближайшей выдаче. Побочных эффектов нет.
type ExclusionService struct {
	db            *db.Manager
	cache         *redis.Client
	historyWindow int
}

func NewExclusionService(manager *db.Manager, cache *redis.Client) *ExclusionService {
	return &ExclusionService{
		db:            manager,
		cache:         cache,
		historyWindow: DEFAULT_HISTORY_WINDOW,
	}
}

// SetHistoryWindow переопределяет размер окна истории из конфигурации
func (es *ExclusionService) SetHistoryWindow(n int) {
	if n > 0 {
		es.historyWindow = n
	}
}

// BuildExclusionSet объединяет четыре источника: последние прослушивания,
// курсор last_shown_content_id, контент взаимно заблокированных авторов и
// session-exclude список текущего скролла. Redis seen-кеш добавляется
// сверху, если доступен.
func (es *ExclusionService) BuildExclusionSet(ctx context.Context, viewerID string, sessionExclude []int64) ([]int64, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, ErrInvalidViewer
	}

	excluded := make(map[int64]struct{})

	// (a) последние N прослушиваний
	var played []int64
	err := es.db.Read(ctx).
		Model(&models.PlayHistory{}).
		Where("user_id = ?", viewerID).
		Order("id DESC").
		Limit(es.historyWindow).
		Pluck("content_id", &played).Error
	if err != nil {
		return nil, wrapStoreErr("failed to read play history", err)
	}
	for _, id := range played {
		excluded[id] = struct{}{}
	}

	// (b) курсор последней выдачи
	var viewer models.User
	err = es.db.Read(ctx).
		Select("last_shown_content_id").
		Where("id = ?", viewerID).
		Limit(1).
		Find(&viewer).Error
	if err != nil {
		return nil, wrapStoreErr("failed to read viewer cursor", err)
	}
	if viewer.LastShownContentID != nil {
		excluded[*viewer.LastShownContentID] = struct{}{}
	}

	// (c) контент авторов во взаимной блокировке. Блокировка хранится
	// направленно, исключаем оба направления.
	var blockedUsers []string
	err = es.db.Read(ctx).
		Model(&models.Block{}).
		Where("blocker_id = ? OR blocked_id = ?", viewerID, viewerID).
		Select("CASE WHEN blocker_id = ? THEN blocked_id ELSE blocker_id END", viewerID).
		Scan(&blockedUsers).Error
	if err != nil {
		return nil, wrapStoreErr("failed to read blocks", err)
	}
	if len(blockedUsers) > 0 {
		var blockedContent []int64
		err = es.db.Read(ctx).
			Model(&models.Content{}).
			Where("user_id IN ?", blockedUsers).
			Pluck("id", &blockedContent).Error
		if err != nil {
			return nil, wrapStoreErr("failed to read blocked content", err)
		}
		for _, id := range blockedContent {
			excluded[id] = struct{}{}
		}
	}

	// (d) session-exclude список, как есть
	for _, id := range sessionExclude {
		excluded[id] = struct{}{}
	}

	// seen-кеш последних выдач, best effort
	for _, id := range es.cachedSeen(ctx, viewerID) {
		excluded[id] = struct{}{}
	}

	result := make([]int64, 0, len(excluded))
	for id := range excluded {
		result = append(result, id)
	}
	return result, nil
}

// cachedSeen читает id недавних выдач из Redis. Кеш недоступен - окно
// просто короче, это не ошибка.
func (es *ExclusionService) cachedSeen(ctx context.Context, viewerID string) []int64 {
	if es.cache == nil {
		return nil
	}
	members, err := es.cache.ZRevRange(ctx, seenKey(viewerID), 0, int64(es.historyWindow-1)).Result()
	if err != nil {
		return nil
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if id, err := strconv.ParseInt(m, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
