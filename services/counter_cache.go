package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const UNREAD_KEY_PREFIX = "unread:"

// Lua для атомарного инкремента с полом на нуле: конкурентные декременты
// не уводят счетчик в минус.
const unreadIncrementScript = `
	local v = tonumber(redis.call('GET', KEYS[1]) or '0')
	v = math.max(0, v + tonumber(ARGV[1]))
	redis.call('SET', KEYS[1], v)
	redis.call('EXPIRE', KEYS[1], 86400)
	return v
`

// CounterCache - кеш счетчика непрочитанных уведомлений в Redis.
// Без Redis все операции вырождаются в no-op, чтение уходит в БД.
type CounterCache struct {
	redisClient  *redis.Client
	incrementSHA string
}

func NewCounterCache(redisClient *redis.Client) *CounterCache {
	cc := &CounterCache{redisClient: redisClient}
	if redisClient != nil {
		sha, err := redisClient.ScriptLoad(context.Background(), unreadIncrementScript).Result()
		if err != nil {
			log.Printf("Warning: failed to load unread counter script: %v", err)
		} else {
			cc.incrementSHA = sha
		}
	}
	return cc
}

func unreadKey(viewerID string) string {
	return UNREAD_KEY_PREFIX + viewerID
}

// IncrementUnread сдвигает счетчик на delta. Best effort: сбой кеша
// логируется, БД остается источником истины.
func (cc *CounterCache) IncrementUnread(ctx context.Context, viewerID string, delta int64) {
	if cc.redisClient == nil {
		return
	}

	key := unreadKey(viewerID)
	var err error
	if cc.incrementSHA != "" {
		err = cc.redisClient.EvalSha(ctx, cc.incrementSHA, []string{key}, delta).Err()
	} else {
		err = cc.redisClient.Eval(ctx, unreadIncrementScript, []string{key}, delta).Err()
	}
	if err != nil {
		log.Printf("Warning: failed to update unread counter for %s: %v", viewerID, err)
	}
}

// GetUnread возвращает значение и признак попадания в кеш
func (cc *CounterCache) GetUnread(ctx context.Context, viewerID string) (int64, bool) {
	if cc.redisClient == nil {
		return 0, false
	}
	data, err := cc.redisClient.Get(ctx, unreadKey(viewerID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

// SetUnread прогревает кеш точным значением из БД
func (cc *CounterCache) SetUnread(ctx context.Context, viewerID string, value int64) {
	if cc.redisClient == nil {
		return
	}
	err := cc.redisClient.Set(ctx, unreadKey(viewerID), fmt.Sprint(value), SEEN_CACHE_TTL).Err()
	if err != nil {
		log.Printf("Warning: failed to set unread counter for %s: %v", viewerID, err)
	}
}
