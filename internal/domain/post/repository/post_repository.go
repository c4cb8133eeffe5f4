package repository

import (
	"context"
	"errors"
	"time"

	"blog_api/internal/domain/post/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository 文章计数数据访问接口
type PostRepository interface {
	Transaction(ctx context.Context, fn func(repo PostRepository) error) error

	// IncrementViews 原子地给浏览数加 n，文章不存在时创建
	IncrementViews(ctx context.Context, slug string, n int64) (*model.Post, error)
	// IncrementLikes 原子地给点赞数加 n，文章不存在时创建
	IncrementLikes(ctx context.Context, slug string, n int64) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	SumViews(ctx context.Context) (int64, error)
	SumLikes(ctx context.Context) (int64, error)

	// AddSessionLikes 原子地给会话点赞数加 n，会话不存在时创建
	AddSessionLikes(ctx context.Context, sessionID string, n int64) (*model.LikeSession, error)
	// GetSessionLikes 会话不存在时返回 0
	GetSessionLikes(ctx context.Context, sessionID string) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建仓库
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Transaction(ctx context.Context, fn func(repo PostRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&postRepository{db: tx})
	})
}

func (r *postRepository) IncrementViews(ctx context.Context, slug string, n int64) (*model.Post, error) {
	return r.upsertPost(ctx, &model.Post{Slug: slug, Views: n}, "views", n)
}

func (r *postRepository) IncrementLikes(ctx context.Context, slug string, n int64) (*model.Post, error) {
	return r.upsertPost(ctx, &model.Post{Slug: slug, Likes: n}, "likes", n)
}

// upsertPost INSERT ... ON CONFLICT (slug) DO UPDATE SET <column> = posts.<column> + n RETURNING *
func (r *postRepository) upsertPost(ctx context.Context, post *model.Post, column string, n int64) (*model.Post, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				column:       gorm.Expr("posts."+column+" + ?", n),
				"updated_at": now,
			}),
		},
		clause.Returning{},
	).Create(post).Error
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) SumViews(ctx context.Context) (int64, error) {
	return r.sum(ctx, "views")
}

func (r *postRepository) SumLikes(ctx context.Context) (int64, error) {
	return r.sum(ctx, "likes")
}

func (r *postRepository) sum(ctx context.Context, column string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error
	return total, err
}

func (r *postRepository) AddSessionLikes(ctx context.Context, sessionID string, n int64) (*model.LikeSession, error) {
	now := time.Now().UTC()
	session := &model.LikeSession{ID: sessionID, Likes: n, CreatedAt: now, UpdatedAt: now}

	err := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"likes":      gorm.Expr("likes_sessions.likes + ?", n),
				"updated_at": now,
			}),
		},
		clause.Returning{},
	).Create(session).Error
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *postRepository) GetSessionLikes(ctx context.Context, sessionID string) (int64, error) {
	var session model.LikeSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return session.Likes, nil
}
