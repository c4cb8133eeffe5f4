package service

import (
	"context"
	"errors"
	"time"

	"blog_api/internal/domain/stats/client"
	"blog_api/internal/pkg/auth"
	"blog_api/internal/pkg/config"
	"blog_api/pkg/cache"
	"blog_api/pkg/logger"
	"blog_api/pkg/metrics"
	"blog_api/pkg/security"

	"go.uber.org/zap"
)

const (
	cacheTTL    = time.Hour
	wakatimeKey = "stats:wakatime"
	youtubeKey  = "stats:youtube"
)

// WakatimeStats 编码时长
type WakatimeStats struct {
	Seconds float64 `json:"seconds"`
}

// YoutubeStats 频道统计
type YoutubeStats struct {
	Subscribers int64 `json:"subscribers"`
	Views       int64 `json:"views"`
}

// StatsService 第三方统计接口
// 未配置密钥或上游失败时返回零值，不返回错误
type StatsService interface {
	Wakatime(ctx context.Context, caller auth.Caller) (*WakatimeStats, error)
	Youtube(ctx context.Context, caller auth.Caller) (*YoutubeStats, error)
}

// Upstream 第三方接口
type Upstream interface {
	WakatimeSeconds(ctx context.Context, apiKey string) (float64, error)
	YoutubeChannel(ctx context.Context, apiKey, channelID string) (*client.ChannelStats, error)
}

type statsService struct {
	upstream Upstream
	cache    cache.CacheService
	limiter  security.RateLimiter
	cfg      config.StatsConfig
}

// NewStatsService 创建统计服务
func NewStatsService(upstream Upstream, c cache.CacheService, limiter security.RateLimiter, cfg config.StatsConfig) StatsService {
	return &statsService{upstream: upstream, cache: c, limiter: limiter, cfg: cfg}
}

func (s *statsService) Wakatime(ctx context.Context, caller auth.Caller) (*WakatimeStats, error) {
	if err := security.Guard(ctx, s.limiter, security.Key("wakatime", "get", caller.IP)); err != nil {
		return nil, err
	}
	if s.cfg.WakatimeAPIKey == "" {
		return &WakatimeStats{}, nil
	}

	var stats WakatimeStats
	if s.cached(ctx, wakatimeKey, &stats) {
		return &stats, nil
	}

	seconds, err := s.upstream.WakatimeSeconds(ctx, s.cfg.WakatimeAPIKey)
	if err != nil {
		logger.Log.Error("wakatime request failed", zap.Error(err))
		metrics.RecordUpstreamError("wakatime")
		return &WakatimeStats{}, nil
	}

	stats = WakatimeStats{Seconds: seconds}
	s.store(ctx, wakatimeKey, stats)
	return &stats, nil
}

func (s *statsService) Youtube(ctx context.Context, caller auth.Caller) (*YoutubeStats, error) {
	if err := security.Guard(ctx, s.limiter, security.Key("youtube", "get", caller.IP)); err != nil {
		return nil, err
	}
	if s.cfg.GoogleAPIKey == "" || s.cfg.YoutubeChannelID == "" {
		return &YoutubeStats{}, nil
	}

	var stats YoutubeStats
	if s.cached(ctx, youtubeKey, &stats) {
		return &stats, nil
	}

	channel, err := s.upstream.YoutubeChannel(ctx, s.cfg.GoogleAPIKey, s.cfg.YoutubeChannelID)
	if err != nil {
		logger.Log.Error("youtube request failed", zap.Error(err))
		metrics.RecordUpstreamError("youtube")
		return &YoutubeStats{}, nil
	}

	stats = YoutubeStats{Subscribers: channel.Subscribers, Views: channel.Views}
	s.store(ctx, youtubeKey, stats)
	return &stats, nil
}

func (s *statsService) cached(ctx context.Context, key string, dest interface{}) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		metrics.RecordCacheHit("stats")
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Log.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	metrics.RecordCacheMiss("stats")
	return false
}

func (s *statsService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, cacheTTL); err != nil {
		logger.Log.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
