package cache

import (
	"context"
	"errors"

	"blog_api/pkg/logger"
	"blog_api/pkg/metrics"

	"go.uber.org/zap"
)

// Loader 从数据库加载计数
type Loader func(ctx context.Context) (int64, error)

// CounterCache 计数缓存
// 读：miss 时回源并回填；写：由调用方在变更后写入最新值（write-through）
// 计数 key 不设过期时间
type CounterCache struct {
	cache CacheService
}

// NewCounterCache 创建计数缓存
func NewCounterCache(cache CacheService) *CounterCache {
	return &CounterCache{cache: cache}
}

// GetOrLoad 读取计数，未命中时调用 loader 并回填
func (c *CounterCache) GetOrLoad(ctx context.Context, key string, loader Loader) (int64, error) {
	var value int64
	err := c.cache.Get(ctx, key, &value)
	if err == nil {
		metrics.RecordCacheHit("counter")
		return value, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Log.Warn("counter cache read failed", zap.String("key", key), zap.Error(err))
	}
	metrics.RecordCacheMiss("counter")

	value, err = loader(ctx)
	if err != nil {
		return 0, err
	}

	c.Set(ctx, key, value)
	return value, nil
}

// Set 写入最新计数，失败只记录日志
func (c *CounterCache) Set(ctx context.Context, key string, value int64) {
	if err := c.cache.Set(ctx, key, value, 0); err != nil {
		logger.Log.Warn("counter cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate 删除计数，下次读取时重新加载
func (c *CounterCache) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			logger.Log.Warn("counter cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
}
