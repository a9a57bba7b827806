package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/textutil"
)

// SearchCacheConfig 检索缓存配置。
type SearchCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// SearchCache 基于 Redis 的检索结果缓存。
// 缓存失败只记录日志,不影响检索本身。
type SearchCache struct {
	redis  *goredis.Client
	config *SearchCacheConfig
}

// NewSearchCache 创建检索缓存实例。
func NewSearchCache(redis *goredis.Client, config *SearchCacheConfig) *SearchCache {
	if config == nil {
		config = &SearchCacheConfig{
			Enabled:   false,
			TTL:       10 * time.Minute,
			KeyPrefix: "copilot:search:",
		}
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "copilot:search:"
	}
	return &SearchCache{redis: redis, config: config}
}

// cacheKey 基于规范化的请求内容生成缓存键。
func (c *SearchCache) cacheKey(req *SearchRequest) string {
	payload, _ := json.Marshal(req)
	return c.config.KeyPrefix + textutil.HashString(string(payload))
}

// Get 从缓存读取检索响应;未命中返回 (nil, nil)。
func (c *SearchCache) Get(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, fmt.Errorf("cache not enabled or redis not available")
	}

	key := c.cacheKey(req)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("search cache miss", "key", key)
			metrics.GetSearchMetrics().RecordCache(false)
			return nil, nil
		}
		logger.Warnw("failed to get from search cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var resp model.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.Warnw("failed to unmarshal cached search response", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Debugw("search cache hit", "key", key, "results", len(resp.Results))
	metrics.GetSearchMetrics().RecordCache(true)
	return &resp, nil
}

// Set 将检索响应写入缓存。带错误字段的响应不缓存。
func (c *SearchCache) Set(ctx context.Context, req *SearchRequest, resp *model.SearchResponse) error {
	if !c.config.Enabled || c.redis == nil || resp == nil || resp.Error != "" {
		return nil
	}

	key := c.cacheKey(req)
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Warnw("failed to marshal search response for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set search cache", "error", err.Error(), "key", key)
		return err
	}
	return nil
}

// Clear 清除所有检索缓存键。
func (c *SearchCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared search cache", "deleted_count", deleted)
	return nil
}
