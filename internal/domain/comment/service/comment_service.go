package service

import (
	"context"
	"errors"
	"strings"

	"blog_api/internal/domain/comment/model"
	"blog_api/internal/domain/comment/repository"
	"blog_api/internal/pkg/auth"
	"blog_api/internal/pkg/content"
	"blog_api/internal/pkg/notify"
	"blog_api/internal/pkg/telemetry"
	"blog_api/pkg/apperror"
	"blog_api/pkg/cache"
	"blog_api/pkg/logger"
	"blog_api/pkg/security"
	"blog_api/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	rateNamespace = "comments"
	// statConcurrency 单页统计查询的并发上限
	statConcurrency = 8
)

// ListInput 分页查询参数
type ListInput struct {
	Slug                 string
	ParentID             string
	Type                 model.CommentType
	Sort                 model.SortOrder
	Cursor               string
	Limit                int
	HighlightedCommentID string
}

// PostInput 发表评论参数
type PostInput struct {
	Slug     string
	Content  string
	Date     string // 客户端展示用的日期字符串
	ParentID string
}

// CommentService 评论服务接口
type CommentService interface {
	ListPage(ctx context.Context, caller auth.Caller, in ListInput) (*model.CommentPage, error)
	CommentsCount(ctx context.Context, caller auth.Caller, slug string) (int64, error)
	RepliesCount(ctx context.Context, caller auth.Caller, slug string) (int64, error)
	TotalCount(ctx context.Context, caller auth.Caller, slug string) (int64, error)
	Post(ctx context.Context, caller auth.Caller, in PostInput) (*model.Comment, error)
	Delete(ctx context.Context, caller auth.Caller, id string) error
	AdminList(ctx context.Context, caller auth.Caller) ([]model.AdminComment, error)
}

type commentService struct {
	repo     repository.CommentRepository
	counter  *cache.CounterCache
	limiter  security.RateLimiter
	catalog  content.Catalog
	notifier notify.Notifier
}

// NewCommentService 创建评论服务
func NewCommentService(
	repo repository.CommentRepository,
	counter *cache.CounterCache,
	limiter security.RateLimiter,
	catalog content.Catalog,
	notifier notify.Notifier,
) CommentService {
	return &commentService{
		repo:     repo,
		counter:  counter,
		limiter:  limiter,
		catalog:  catalog,
		notifier: notifier,
	}
}

// 计数缓存 key
func countKey(slug string) string   { return "comments:count:" + slug }
func repliesKey(slug string) string { return "comments:replies:" + slug }
func totalKey(slug string) string   { return "comments:total:" + slug }

func (s *commentService) gate(ctx context.Context, action, identity string) error {
	return security.Guard(ctx, s.limiter, security.Key(rateNamespace, action, identity))
}

// ListPage 游标分页获取评论
func (s *commentService) ListPage(ctx context.Context, caller auth.Caller, in ListInput) (*model.CommentPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.ListPage")
	defer span.End()
	span.SetAttributes(attribute.String("comment.slug", in.Slug))

	if err := s.gate(ctx, "getInfiniteComments", caller.IP); err != nil {
		return nil, err
	}

	q, err := buildListQuery(in)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	views, err := s.withStats(ctx, caller, comments)
	if err != nil {
		return nil, err
	}

	// 首页且带高亮评论：单独查出并置顶
	if in.HighlightedCommentID != "" && q.Cursor == nil {
		highlighted, err := s.repo.GetByID(ctx, in.HighlightedCommentID)
		switch {
		case err == nil:
			hv, err := s.withStats(ctx, caller, []model.Comment{*highlighted})
			if err != nil {
				return nil, err
			}
			views = append(hv, views...)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	page := &model.CommentPage{Comments: views}
	if n := len(views); n > 0 {
		cursor := utils.FormatCursor(views[n-1].CreatedAt)
		page.NextCursor = &cursor
	}
	return page, nil
}

func buildListQuery(in ListInput) (model.ListQuery, error) {
	if strings.TrimSpace(in.Slug) == "" {
		return model.ListQuery{}, apperror.BadRequest("slug is required")
	}

	q := model.ListQuery{
		PostID:    in.Slug,
		Type:      in.Type,
		Sort:      in.Sort,
		Limit:     utils.ClampLimit(in.Limit),
		ExcludeID: in.HighlightedCommentID,
	}

	switch q.Type {
	case "":
		q.Type = model.TypeComments
		if in.ParentID != "" {
			q.Type = model.TypeReplies
		}
	case model.TypeComments, model.TypeReplies:
	default:
		return q, apperror.BadRequest("type must be comments or replies")
	}

	switch q.Sort {
	case "":
		q.Sort = model.SortNewest
	case model.SortNewest, model.SortOldest:
	default:
		return q, apperror.BadRequest("sort must be newest or oldest")
	}

	if in.ParentID != "" {
		parentID := in.ParentID
		q.ParentID = &parentID
	}

	cursor, err := utils.ParseCursor(in.Cursor)
	if err != nil {
		return q, apperror.BadRequest("invalid cursor")
	}
	q.Cursor = cursor

	return q, nil
}

// withStats 并发统计每条评论的回复数、赞踩数以及当前用户的评价，结果保持原顺序
func (s *commentService) withStats(ctx context.Context, caller auth.Caller, comments []model.Comment) ([]model.CommentView, error) {
	views := make([]model.CommentView, len(comments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i := range comments {
		g.Go(func() error {
			v, err := s.buildView(gctx, caller, &comments[i])
			if err != nil {
				return err
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *commentService) buildView(ctx context.Context, caller auth.Caller, c *model.Comment) (model.CommentView, error) {
	replies, err := s.repo.CountReplies(ctx, c.ID)
	if err != nil {
		return model.CommentView{}, err
	}
	likes, err := s.repo.CountRates(ctx, c.ID, true)
	if err != nil {
		return model.CommentView{}, err
	}
	dislikes, err := s.repo.CountRates(ctx, c.ID, false)
	if err != nil {
		return model.CommentView{}, err
	}

	var liked *bool
	if caller.Authenticated() {
		rate, err := s.repo.GetRate(ctx, caller.UserID(), c.ID)
		if err != nil {
			return model.CommentView{}, err
		}
		if rate != nil {
			v := rate.Like
			liked = &v
		}
	}

	v := model.CommentView{
		ID:        c.ID,
		UserID:    c.UserID,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		IsDeleted: c.IsDeleted,
		Replies:   replies,
		Likes:     likes,
		Dislikes:  dislikes,
		Liked:     liked,
		User: model.CommentUser{
			ID:    c.UserID,
			Name:  c.User.Name,
			Image: utils.AvatarOrDefault(c.User.Image, c.UserID),
			Role:  c.User.Role,
		},
	}
	// 墓碑不返回正文
	if !c.IsDeleted {
		v.Body = c.Body
		v.BodyHTML = utils.RenderMarkdown(c.Body)
	}
	return v, nil
}

// CommentsCount 顶级评论数
func (s *commentService) CommentsCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	return s.count(ctx, caller, "getCommentsCount", slug, countKey(slug), model.ScopeTopLevel)
}

// RepliesCount 回复数
func (s *commentService) RepliesCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	return s.count(ctx, caller, "getRepliesCount", slug, repliesKey(slug), model.ScopeReplies)
}

// TotalCount 评论总数（含回复）
func (s *commentService) TotalCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	return s.count(ctx, caller, "getTotalCommentsCount", slug, totalKey(slug), model.ScopeAll)
}

func (s *commentService) count(ctx context.Context, caller auth.Caller, action, slug, key string, scope model.CountScope) (int64, error) {
	if err := s.gate(ctx, action, caller.IP); err != nil {
		return 0, err
	}
	if strings.TrimSpace(slug) == "" {
		return 0, apperror.BadRequest("slug is required")
	}

	return s.counter.GetOrLoad(ctx, key, func(ctx context.Context) (int64, error) {
		return s.repo.CountByPost(ctx, slug, scope)
	})
}

// refreshCounters 变更后写入最新计数
func (s *commentService) refreshCounters(ctx context.Context, slug string) {
	for key, scope := range map[string]model.CountScope{
		countKey(slug):   model.ScopeTopLevel,
		repliesKey(slug): model.ScopeReplies,
		totalKey(slug):   model.ScopeAll,
	} {
		n, err := s.repo.CountByPost(ctx, slug, scope)
		if err != nil {
			logger.Log.Warn("refresh comment counter failed", zap.String("key", key), zap.Error(err))
			s.counter.Invalidate(ctx, key)
			continue
		}
		s.counter.Set(ctx, key, n)
	}
}

// Post 发表评论或回复
func (s *commentService) Post(ctx context.Context, caller auth.Caller, in PostInput) (*model.Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "comments.Post")
	defer span.End()

	if err := auth.User.Check(caller); err != nil {
		return nil, err
	}
	user := caller.User

	if err := s.gate(ctx, "post", user.ID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.BadRequest("content must not be empty")
	}
	if strings.TrimSpace(in.Date) == "" {
		return nil, apperror.BadRequest("date must not be empty")
	}

	post, ok := s.catalog.FindBySlug(in.Slug)
	if !ok {
		return nil, apperror.NotFound("Blog post")
	}

	comment := &model.Comment{
		Body:   in.Content,
		UserID: user.ID,
		PostID: in.Slug,
	}
	comment.ID = uuid.NewString()
	if in.ParentID != "" {
		parentID := in.ParentID
		comment.ParentID = &parentID
	}

	commenter := notify.Person{Name: user.Name, Image: utils.AvatarOrDefault(&user.Image, user.ID)}
	postRef := notify.PostRef{Slug: in.Slug, Title: post.Title}

	err := s.repo.Transaction(ctx, func(tx repository.CommentRepository) error {
		var parent *model.Comment
		if comment.ParentID != nil {
			p, err := tx.GetByID(ctx, *comment.ParentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("Parent comment")
				}
				return err
			}
			if p.PostID != in.Slug {
				return apperror.NotFound("Parent comment")
			}
			parent = p
		}

		if err := tx.Create(ctx, comment); err != nil {
			return err
		}

		// 邮件通知尽力而为，失败不影响事务
		switch {
		case parent == nil && user.Role == auth.RoleUser:
			if err := s.notifier.CommentPosted(ctx, notify.CommentEvent{
				Post:      postRef,
				CommentID: comment.ID,
				Commenter: commenter,
				Comment:   in.Content,
				Date:      in.Date,
			}); err != nil {
				logger.Log.Warn("comment notification failed", zap.String("comment_id", comment.ID), zap.Error(err))
			}
		case parent != nil && parent.UserID != user.ID:
			if err := s.notifier.ReplyPosted(ctx, notify.ReplyEvent{
				Post:     postRef,
				ParentID: parent.ID,
				ReplyID:  comment.ID,
				ToEmail:  parent.User.Email,
				Replier:  commenter,
				Comment:  parent.Body,
				Reply:    in.Content,
				Date:     in.Date,
			}); err != nil {
				logger.Log.Warn("reply notification failed", zap.String("comment_id", comment.ID), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCounters(ctx, in.Slug)
	return comment, nil
}

// Delete 删除评论
// 有回复：标记为墓碑；无回复：物理删除，若父评论是墓碑且已无回复则一并删除（只向上一层）
func (s *commentService) Delete(ctx context.Context, caller auth.Caller, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "comments.Delete")
	defer span.End()

	if err := auth.User.Check(caller); err != nil {
		return err
	}
	if err := s.gate(ctx, "delete", caller.UserID()); err != nil {
		return err
	}

	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("Comment")
		}
		return err
	}

	if comment.UserID != caller.UserID() {
		return apperror.Unauthorized("you can only delete your own comments")
	}

	err = s.repo.Transaction(ctx, func(tx repository.CommentRepository) error {
		replies, err := tx.CountReplies(ctx, comment.ID)
		if err != nil {
			return err
		}
		if replies > 0 {
			return tx.MarkDeleted(ctx, comment.ID)
		}

		if err := tx.Delete(ctx, comment.ID); err != nil {
			return err
		}
		if !comment.IsReply() {
			return nil
		}

		parent, err := tx.GetByID(ctx, *comment.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if !parent.IsDeleted {
			return nil
		}

		remaining, err := tx.CountReplies(ctx, parent.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Delete(ctx, parent.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshCounters(ctx, comment.PostID)
	return nil
}

// AdminList 后台查看全部评论
func (s *commentService) AdminList(ctx context.Context, caller auth.Caller) ([]model.AdminComment, error) {
	if err := auth.Admin.Check(caller); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.AdminComment, 0, len(comments))
	for _, c := range comments {
		typ := "comment"
		if c.IsReply() {
			typ = "reply"
		}
		result = append(result, model.AdminComment{
			ID:        c.ID,
			UserID:    c.UserID,
			PostID:    c.PostID,
			ParentID:  c.ParentID,
			Body:      c.Body,
			IsDeleted: c.IsDeleted,
			CreatedAt: c.CreatedAt,
			Type:      typ,
		})
	}
	return result, nil
}
