package repository

import (
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// UnreadCache definition the per-user unread counter cache.
// 只是cache,可隨時由message store重算覆蓋,不是事實來源。
type UnreadCache interface {
	Incr(ctx context.Context, userID, conversationID string) error
	Reset(ctx context.Context, userID, conversationID string) error
	Set(ctx context.Context, userID, conversationID string, count int) error
	// Get 回傳(count, cached);cached=false表示需要重算
	Get(ctx context.Context, userID, conversationID string) (int, bool, error)
	GetAll(ctx context.Context, userID string) (map[string]int, error)
}

type redisUnreadCache struct {
	client *redis.Client
}

// NewRedisUnreadCache create UnreadCache on a redis hash per user
func NewRedisUnreadCache(client *redis.Client) UnreadCache {
	return &redisUnreadCache{client: client}
}

func unreadKey(userID string) string {
	return "unread:" + userID
}

func (c *redisUnreadCache) Incr(ctx context.Context, userID, conversationID string) error {
	return c.client.HIncrBy(ctx, unreadKey(userID), conversationID, 1).Err()
}

func (c *redisUnreadCache) Reset(ctx context.Context, userID, conversationID string) error {
	return c.client.HSet(ctx, unreadKey(userID), conversationID, 0).Err()
}

func (c *redisUnreadCache) Set(ctx context.Context, userID, conversationID string, count int) error {
	return c.client.HSet(ctx, unreadKey(userID), conversationID, count).Err()
}

func (c *redisUnreadCache) Get(ctx context.Context, userID, conversationID string) (int, bool, error) {
	val, err := c.client.HGet(ctx, unreadKey(userID), conversationID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		// 壞掉的cache當miss處理,讓caller重算
		return 0, false, nil
	}
	return n, true, nil
}

func (c *redisUnreadCache) GetAll(ctx context.Context, userID string) (map[string]int, error) {
	vals, err := c.client.HGetAll(ctx, unreadKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(vals))
	for conversationID, v := range vals {
		if n, err := strconv.Atoi(v); err == nil {
			counts[conversationID] = n
		}
	}
	return counts, nil
}
