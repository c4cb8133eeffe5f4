package service

import (
	"context"
	"errors"
	"strings"

	"blog_api/internal/domain/post/repository"
	"blog_api/internal/pkg/auth"
	"blog_api/pkg/apperror"
	"blog_api/pkg/cache"
	"blog_api/pkg/security"

	"gorm.io/gorm"
)

const (
	viewNamespace = "views"
	viewCountKey  = "post:view:count"
)

func viewsKey(slug string) string { return "post:views:" + slug }

// ViewService 浏览数服务接口
type ViewService interface {
	Increment(ctx context.Context, caller auth.Caller, slug string) (int64, error)
	Get(ctx context.Context, caller auth.Caller, slug string) (int64, error)
	Count(ctx context.Context, caller auth.Caller) (int64, error)
}

type viewService struct {
	repo    repository.PostRepository
	counter *cache.CounterCache
	limiter security.RateLimiter
}

// NewViewService 创建浏览数服务
func NewViewService(repo repository.PostRepository, counter *cache.CounterCache, limiter security.RateLimiter) ViewService {
	return &viewService{repo: repo, counter: counter, limiter: limiter}
}

// Increment 浏览数 +1，返回最新值
func (s *viewService) Increment(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	if err := security.Guard(ctx, s.limiter, security.Key(viewNamespace, "increment", caller.IP)); err != nil {
		return 0, err
	}
	if err := requireSlug(slug); err != nil {
		return 0, err
	}

	post, err := s.repo.IncrementViews(ctx, slug, 1)
	if err != nil {
		return 0, err
	}

	s.counter.Set(ctx, viewsKey(slug), post.Views)
	s.counter.Invalidate(ctx, viewCountKey)
	return post.Views, nil
}

// Get 单篇文章浏览数，从未被浏览过时返回 NotFound
func (s *viewService) Get(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	if err := security.Guard(ctx, s.limiter, security.Key(viewNamespace, "get", caller.IP)); err != nil {
		return 0, err
	}
	if err := requireSlug(slug); err != nil {
		return 0, err
	}

	return s.counter.GetOrLoad(ctx, viewsKey(slug), func(ctx context.Context) (int64, error) {
		post, err := s.repo.GetBySlug(ctx, slug)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperror.NotFound("Post")
		}
		if err != nil {
			return 0, err
		}
		return post.Views, nil
	})
}

// Count 全站浏览总数
func (s *viewService) Count(ctx context.Context, caller auth.Caller) (int64, error) {
	if err := security.Guard(ctx, s.limiter, security.Key(viewNamespace, "getCount", caller.IP)); err != nil {
		return 0, err
	}
	return s.counter.GetOrLoad(ctx, viewCountKey, s.repo.SumViews)
}

func requireSlug(slug string) error {
	if strings.TrimSpace(slug) == "" {
		return apperror.BadRequest("slug is required")
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
