package service

import (
	"context"
	"fmt"

	"blog_api/internal/domain/post/model"
	"blog_api/internal/domain/post/repository"
	"blog_api/internal/pkg/auth"
	"blog_api/pkg/apperror"
	"blog_api/pkg/cache"
	"blog_api/pkg/security"
	"blog_api/pkg/utils"
)

const (
	likeNamespace = "likes"
	likeCountKey  = "post:like:count"
)

func likesKey(slug string) string { return "post:likes:" + slug }

func sessionLikesKey(slug, sessionID string) string {
	return "user:likes:" + slug + ":" + sessionID
}

// LikeState 文章点赞数与当前会话已点赞数
type LikeState struct {
	Likes            int64 `json:"likes"`
	CurrentUserLikes int64 `json:"currentUserLikes"`
}

// LikeService 点赞服务接口
type LikeService interface {
	Patch(ctx context.Context, caller auth.Caller, slug string, value int64) (*LikeState, error)
	Get(ctx context.Context, caller auth.Caller, slug string) (*LikeState, error)
	Count(ctx context.Context, caller auth.Caller) (int64, error)
}

type likeService struct {
	repo    repository.PostRepository
	counter *cache.CounterCache
	limiter security.RateLimiter
}

// NewLikeService 创建点赞服务
func NewLikeService(repo repository.PostRepository, counter *cache.CounterCache, limiter security.RateLimiter) LikeService {
	return &likeService{repo: repo, counter: counter, limiter: limiter}
}

// Patch 点赞 value 次，同一会话对同一篇文章累计不超过 MaxSessionLikes
// 先读后写，并发下可能略微超出上限
func (s *likeService) Patch(ctx context.Context, caller auth.Caller, slug string, value int64) (*LikeState, error) {
	if err := requireSlug(slug); err != nil {
		return nil, err
	}
	sessionID := utils.LikeSessionID(slug, caller.IP)

	if err := security.Guard(ctx, s.limiter, security.Key(likeNamespace, "patch", sessionID)); err != nil {
		return nil, err
	}
	if value < 1 || value > model.MaxSessionLikes {
		return nil, apperror.BadRequest(fmt.Sprintf("value must be between 1 and %d", model.MaxSessionLikes))
	}

	used, err := s.repo.GetSessionLikes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if used+value > model.MaxSessionLikes {
		return nil, apperror.BadRequest(fmt.Sprintf("You can only like a post %d times", model.MaxSessionLikes))
	}

	var state LikeState
	err = s.repo.Transaction(ctx, func(tx repository.PostRepository) error {
		post, err := tx.IncrementLikes(ctx, slug, value)
		if err != nil {
			return err
		}
		session, err := tx.AddSessionLikes(ctx, sessionID, value)
		if err != nil {
			return err
		}
		state = LikeState{Likes: post.Likes, CurrentUserLikes: session.Likes}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.counter.Set(ctx, likesKey(slug), state.Likes)
	s.counter.Set(ctx, sessionLikesKey(slug, sessionID), state.CurrentUserLikes)
	s.counter.Invalidate(ctx, likeCountKey)
	return &state, nil
}

// Get 点赞数，文章或会话不存在时按 0 处理
func (s *likeService) Get(ctx context.Context, caller auth.Caller, slug string) (*LikeState, error) {
	if err := requireSlug(slug); err != nil {
		return nil, err
	}
	sessionID := utils.LikeSessionID(slug, caller.IP)

	if err := security.Guard(ctx, s.limiter, security.Key(likeNamespace, "get", sessionID)); err != nil {
		return nil, err
	}

	likes, err := s.counter.GetOrLoad(ctx, likesKey(slug), func(ctx context.Context) (int64, error) {
		post, err := s.repo.GetBySlug(ctx, slug)
		if err != nil {
			return 0, ignoreNotFound(err)
		}
		return post.Likes, nil
	})
	if err != nil {
		return nil, err
	}

	mine, err := s.counter.GetOrLoad(ctx, sessionLikesKey(slug, sessionID), func(ctx context.Context) (int64, error) {
		return s.repo.GetSessionLikes(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	return &LikeState{Likes: likes, CurrentUserLikes: mine}, nil
}

// Count 全站点赞总数
func (s *likeService) Count(ctx context.Context, caller auth.Caller) (int64, error) {
	if err := security.Guard(ctx, s.limiter, security.Key(likeNamespace, "getCount", caller.IP)); err != nil {
		return 0, err
	}
	return s.counter.GetOrLoad(ctx, likeCountKey, s.repo.SumLikes)
}
