package security

import (
	"context"
	"strings"
	"sync"
	"time"

	"blog_api/pkg/apperror"
	"blog_api/pkg/logger"
	"blog_api/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Limit 限流配置
type Limit struct {
	Requests int           // 窗口内允许的请求数
	Window   time.Duration // 时间窗口
}

// DefaultLimit 全站统一策略：每个 key 10 秒内 10 次
var DefaultLimit = Limit{Requests: 10, Window: 10 * time.Second}

// slidingWindowScript 裁剪 → 计数 → 记录，整体原子执行
// KEYS[1] key; ARGV: now_ms, window_ms, limit, member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', tostring(now - window))
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('PEXPIRE', key, ARGV[2])
return 1
`)

// SlidingWindow 基于 Redis 有序集合的滑动窗口日志限流器
type SlidingWindow struct {
	client *redis.Client
	prefix string
	limit  Limit
	now    func() time.Time
}

// NewSlidingWindow 创建 Redis 滑动窗口限流器
func NewSlidingWindow(client *redis.Client, prefix string, limit Limit) *SlidingWindow {
	return &SlidingWindow{
		client: client,
		prefix: prefix + "ratelimit:",
		limit:  limit,
		now:    time.Now,
	}
}

// Allow 检查并记录一次请求；被拒绝的请求不占用窗口
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := sw.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, sw.client, []string{sw.prefix + key},
		now, sw.limit.Window.Milliseconds(), sw.limit.Requests, uuid.NewString(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// SlidingWindowLog 进程内滑动窗口日志限流器（用于开发/测试）
type SlidingWindowLog struct {
	mu    sync.Mutex
	logs  map[string][]time.Time
	limit Limit
	now   func() time.Time
}

// NewSlidingWindowLog 创建进程内滑动窗口限流器
func NewSlidingWindowLog(limit Limit) *SlidingWindowLog {
	return &SlidingWindowLog{
		logs:  make(map[string][]time.Time),
		limit: limit,
		now:   time.Now,
	}
}

// Allow 检查并记录一次请求
func (swl *SlidingWindowLog) Allow(ctx context.Context, key string) (bool, error) {
	swl.mu.Lock()
	defer swl.mu.Unlock()

	now := swl.now()
	windowStart := now.Add(-swl.limit.Window)

	// 清理过期的请求
	valid := swl.logs[key][:0]
	for _, t := range swl.logs[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= swl.limit.Requests {
		swl.logs[key] = valid
		return false, nil
	}

	swl.logs[key] = append(valid, now)
	return true, nil
}

// Guard 限流检查，超限时返回 RateLimited
// 限流器自身故障时放行，只记录日志
func Guard(ctx context.Context, limiter RateLimiter, key string) error {
	allowed, err := limiter.Allow(ctx, key)
	if err != nil {
		logger.Log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !allowed {
		metrics.RecordRateLimited(action(key))
		return apperror.RateLimited()
	}
	return nil
}

// Key 拼接限流 key：<namespace>:<action>:<identity>
func Key(namespace, action, identity string) string {
	return namespace + ":" + action + ":" + identity
}

// action 取 namespace:action 作为指标标签，identity 可能包含冒号（IPv6）
func action(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return key
	}
	return parts[0] + ":" + parts[1]
}
