package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/pkg/utils/json"
)

// AnswerCache 缓存检索增强问答的最终回答，key 由问题与历史共同决定。
type AnswerCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewAnswerCache 创建回答缓存。
func NewAnswerCache(client *redis.Client, keyPrefix string, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// cacheKey 以 SHA-256 哈希生成缓存 key，避免超长或含特殊字符的 key。
func (c *AnswerCache) cacheKey(query, history string) string {
	sum := sha256.Sum256([]byte(query + "\x00" + history))
	return c.keyPrefix + hex.EncodeToString(sum[:])
}

// Get 查询缓存，未命中返回 (nil, nil)。
func (c *AnswerCache) Get(ctx context.Context, query, history string) (*model.InferenceResponse, error) {
	data, err := c.client.Get(ctx, c.cacheKey(query, history)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var resp model.InferenceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &resp, nil
}

// Set 写入缓存，序列化或写入失败只记录日志，不影响主流程。
func (c *AnswerCache) Set(ctx context.Context, query, history string, resp *model.InferenceResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Warnw("failed to encode cached answer", "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, c.cacheKey(query, history), data, c.ttl).Err(); err != nil {
		logger.Warnw("failed to write answer cache", "error", err.Error())
	}
}

// Clear 清除该前缀下的所有缓存条目。
func (c *AnswerCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
