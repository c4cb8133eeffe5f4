package repository

import (
	"context"
	"errors"

	"blog_api/internal/domain/comment/model"

	"gorm.io/gorm"
)

// CommentRepository 评论仓库
type CommentRepository interface {
	// Transaction 在同一事务内执行，fn 中必须使用传入的 repo
	Transaction(ctx context.Context, fn func(repo CommentRepository) error) error

	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	List(ctx context.Context, q model.ListQuery) ([]model.Comment, error)
	ListAll(ctx context.Context) ([]model.Comment, error)
	MarkDeleted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	CountReplies(ctx context.Context, commentID string) (int64, error)
	CountByPost(ctx context.Context, postID string, scope model.CountScope) (int64, error)
	CountRates(ctx context.Context, commentID string, like bool) (int64, error)
	GetRate(ctx context.Context, userID, commentID string) (*model.Rate, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Transaction(ctx context.Context, fn func(repo CommentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&commentRepository{db: tx})
	})
}

// --- Comment ---

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Omit("User").Create(comment).Error
}

// GetByID 连同作者一起加载，不存在时返回 gorm.ErrRecordNotFound
func (r *commentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// List 游标分页：游标是排序方向上的严格边界
func (r *commentRepository) List(ctx context.Context, q model.ListQuery) ([]model.Comment, error) {
	query := r.db.WithContext(ctx).Model(&model.Comment{}).Preload("User").
		Where("post_id = ?", q.PostID)

	if q.ParentID != nil {
		query = query.Where("parent_id = ?", *q.ParentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	// type 与 parentId 必须一致，不一致时结果为空
	if q.Type == model.TypeReplies {
		query = query.Where("parent_id IS NOT NULL")
	} else {
		query = query.Where("parent_id IS NULL")
	}

	order := "created_at desc"
	if q.Sort == model.SortOldest {
		order = "created_at asc"
	}

	if q.Cursor != nil {
		if q.Sort == model.SortOldest {
			query = query.Where("created_at > ?", *q.Cursor)
		} else {
			query = query.Where("created_at < ?", *q.Cursor)
		}
	}

	if q.ExcludeID != "" {
		query = query.Where("id <> ?", q.ExcludeID)
	}

	var comments []model.Comment
	if err := query.Order(order).Limit(q.Limit).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) ListAll(ctx context.Context) ([]model.Comment, error) {
	var comments []model.Comment
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) MarkDeleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("is_deleted", true).Error
}

// Delete 物理删除评论及其评价
func (r *commentRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("comment_id = ?", id).Delete(&model.Rate{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Comment{}).Error
}

// --- Count ---

func (r *commentRepository) CountReplies(ctx context.Context, commentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("parent_id = ?", commentID).Count(&count).Error
	return count, err
}

func (r *commentRepository) CountByPost(ctx context.Context, postID string, scope model.CountScope) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID)
	switch scope {
	case model.ScopeTopLevel:
		query = query.Where("parent_id IS NULL")
	case model.ScopeReplies:
		query = query.Where("parent_id IS NOT NULL")
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// --- Rate ---

// CountRates like 是保留字，用 map 条件让 gorm 负责引用列名
func (r *commentRepository) CountRates(ctx context.Context, commentID string, like bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Rate{}).
		Where(map[string]interface{}{"comment_id": commentID, "like": like}).
		Count(&count).Error
	return count, err
}

// GetRate 不存在时返回 nil, nil
func (r *commentRepository) GetRate(ctx context.Context, userID, commentID string) (*model.Rate, error) {
	var rate model.Rate
	err := r.db.WithContext(ctx).Where("user_id = ? AND comment_id = ?", userID, commentID).Take(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}
