package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"blog_api/internal/domain/comment/model"
	"blog_api/internal/domain/comment/repository"
	userModel "blog_api/internal/domain/user/model"
	"blog_api/internal/pkg/auth"
	"blog_api/internal/pkg/content"
	"blog_api/internal/pkg/notify"
	"blog_api/internal/testutil"
	"blog_api/pkg/apperror"
	"blog_api/pkg/cache"
	"blog_api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockNotifier is a mock of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CommentPosted(ctx context.Context, ev notify.CommentEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockNotifier) ReplyPosted(ctx context.Context, ev notify.ReplyEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type fixture struct {
	db       *gorm.DB
	repo     repository.CommentRepository
	counter  *cache.CounterCache
	notifier *MockNotifier
	svc      CommentService
	alice    *userModel.User
	bob      *userModel.User
}

func newFixture(t *testing.T, limiter security.RateLimiter) *fixture {
	db := testutil.NewTestDB(t)
	repo := repository.NewCommentRepository(db)
	counter := cache.NewCounterCache(cache.NewMemoryCache())
	notifier := new(MockNotifier)
	catalog := content.NewStaticCatalog(
		content.Post{Slug: "hello", Title: "Hello World"},
		content.Post{Slug: "world", Title: "Another"},
	)
	if limiter == nil {
		// 测试中不希望被限流干扰
		limiter = security.NewSlidingWindowLog(security.Limit{Requests: 1 << 20, Window: time.Second})
	}

	return &fixture{
		db:       db,
		repo:     repo,
		counter:  counter,
		notifier: notifier,
		svc:      NewCommentService(repo, counter, limiter, catalog, notifier),
		alice:    testutil.CreateUser(t, db, userModel.RoleUser),
		bob:      testutil.CreateUser(t, db, userModel.RoleUser),
	}
}

func callerOf(u *userModel.User) auth.Caller {
	img := ""
	if u.Image != nil {
		img = *u.Image
	}
	return auth.Caller{IP: "10.0.0.1", User: &auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Image: img, Role: u.Role}}
}

var anon = auth.Caller{IP: "10.0.0.2"}

func (f *fixture) seed(t *testing.T, id, userID, slug string, parentID *string, at time.Time) {
	c := &model.Comment{Body: "body " + id, UserID: userID, PostID: slug, ParentID: parentID}
	c.ID = id
	c.CreatedAt = at
	require.NoError(t, f.repo.Create(context.Background(), c))
}

func (f *fixture) exists(t *testing.T, id string) bool {
	_, err := f.repo.GetByID(context.Background(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func ids(views []model.CommentView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestListPage_CursorPagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var all []string
	for i := 0; i < 23; i++ {
		id := fmt.Sprintf("c%02d", i)
		f.seed(t, id, f.alice.ID, "hello", nil, t0.Add(time.Duration(i)*time.Second+time.Duration(i)*time.Millisecond))
		all = append(all, id)
	}

	for _, sort := range []model.SortOrder{model.SortNewest, model.SortOldest} {
		t.Run(string(sort), func(t *testing.T) {
			var got []string
			cursor := ""
			for pages := 0; pages < 10; pages++ {
				page, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Sort: sort, Cursor: cursor, Limit: 5})
				require.NoError(t, err)
				if len(page.Comments) == 0 {
					assert.Nil(t, page.NextCursor)
					break
				}
				got = append(got, ids(page.Comments)...)
				require.NotNil(t, page.NextCursor)
				cursor = *page.NextCursor
			}

			want := append([]string(nil), all...)
			if sort == model.SortNewest {
				for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 {
					want[i], want[j] = want[j], want[i]
				}
			}
			assert.Equal(t, want, got, "no duplicates and no gaps")
		})
	}
}

func TestListPage_Stats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	parent := "c1"
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)
	f.seed(t, "r1", f.bob.ID, "hello", &parent, t0.Add(time.Minute))
	f.seed(t, "r2", f.alice.ID, "hello", &parent, t0.Add(2*time.Minute))
	require.NoError(t, f.db.Omit("User", "Comment").Create(&model.Rate{UserID: f.alice.ID, CommentID: "c1", Like: true}).Error)
	require.NoError(t, f.db.Omit("User", "Comment").Create(&model.Rate{UserID: f.bob.ID, CommentID: "c1", Like: false}).Error)

	page, err := f.svc.ListPage(ctx, callerOf(f.bob), ListInput{Slug: "hello"})
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)

	c := page.Comments[0]
	assert.Equal(t, int64(2), c.Replies)
	assert.Equal(t, int64(1), c.Likes)
	assert.Equal(t, int64(1), c.Dislikes)
	require.NotNil(t, c.Liked)
	assert.False(t, *c.Liked)
	assert.Equal(t, "body c1", c.Body)
	assert.Contains(t, c.BodyHTML, "<p>body c1</p>")
	assert.Equal(t, f.alice.Name, c.User.Name)
	assert.NotEmpty(t, c.User.Image, "missing avatar falls back to a default")

	anonPage, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello"})
	require.NoError(t, err)
	assert.Nil(t, anonPage.Comments[0].Liked)

	replies, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", ParentID: "c1", Type: model.TypeReplies, Sort: model.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(replies.Comments))
}

func TestListPage_Highlighted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.seed(t, fmt.Sprintf("c%d", i), f.alice.ID, "hello", nil, t0.Add(time.Duration(i)*time.Minute))
	}

	page, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Limit: 2, HighlightedCommentID: "c0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c4", "c3"}, ids(page.Comments))
	require.NotNil(t, page.NextCursor)

	// 后续页不再置顶，也不会重复返回
	next, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Limit: 10, HighlightedCommentID: "c0", Cursor: "2024-06-01T09:03:00Z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, ids(next.Comments))

	missing, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Limit: 1, HighlightedCommentID: "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c4"}, ids(missing.Comments))
}

func TestListPage_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ListPage(ctx, anon, ListInput{Slug: " "})
	assert.True(t, apperror.Is(err, apperror.CodeBadRequest))

	_, err = f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Cursor: "not-a-time"})
	assert.True(t, apperror.Is(err, apperror.CodeBadRequest))

	_, err = f.svc.ListPage(ctx, anon, ListInput{Slug: "hello", Sort: "random"})
	assert.True(t, apperror.Is(err, apperror.CodeBadRequest))

	empty, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello"})
	require.NoError(t, err)
	assert.Empty(t, empty.Comments)
	assert.Nil(t, empty.NextCursor)
}

func TestPost_TopLevelNotifiesOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.notifier.On("CommentPosted", mock.Anything, mock.MatchedBy(func(ev notify.CommentEvent) bool {
		return ev.Post.Title == "Hello World" && ev.Comment == "great post" && ev.Commenter.Name == f.alice.Name
	})).Return(nil).Once()

	c, err := f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: "great post", Date: "2024-06-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.True(t, f.exists(t, c.ID))
	f.notifier.AssertExpectations(t)
}

func TestPost_AdminDoesNotNotifyOwner(t *testing.T) {
	f := newFixture(t, nil)
	admin := testutil.CreateUser(t, f.db, userModel.RoleAdmin)

	_, err := f.svc.Post(context.Background(), callerOf(admin), PostInput{Slug: "hello", Content: "hi", Date: "d"})
	require.NoError(t, err)
	f.notifier.AssertNotCalled(t, "CommentPosted", mock.Anything, mock.Anything)
}

func TestPost_ReplyNotifiesParentAuthor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)

	f.notifier.On("ReplyPosted", mock.Anything, mock.MatchedBy(func(ev notify.ReplyEvent) bool {
		return ev.ToEmail == f.alice.Email && ev.ParentID == "c1" && ev.Comment == "body c1" && ev.Reply == "thanks"
	})).Return(errors.New("ses down")).Once()

	reply, err := f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "thanks", Date: "d", ParentID: "c1"})
	require.NoError(t, err, "email failure must not fail the post")
	assert.True(t, f.exists(t, reply.ID), "email failure must not roll back the insert")
	f.notifier.AssertExpectations(t)

	// 回复自己不发邮件
	_, err = f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: "self", Date: "d", ParentID: "c1"})
	require.NoError(t, err)
	f.notifier.AssertNumberOfCalls(t, "ReplyPosted", 1)
}

func TestPost_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "w1", f.alice.ID, "world", nil, t0)

	_, err := f.svc.Post(ctx, anon, PostInput{Slug: "hello", Content: "x", Date: "d"})
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))

	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "   ", Date: "d"})
	assert.True(t, apperror.Is(err, apperror.CodeBadRequest))

	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "unknown", Content: "x", Date: "d"})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "x", Date: "d", ParentID: "nope"})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	// 父评论必须属于同一篇文章
	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "x", Date: "d", ParentID: "w1"})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	total, err := f.repo.CountByPost(ctx, "hello", model.ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCounts_WriteThrough(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("CommentPosted", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("ReplyPosted", mock.Anything, mock.Anything).Return(nil)

	n, err := f.svc.CommentsCount(ctx, anon, "hello")
	require.NoError(t, err)
	assert.Zero(t, n)

	c1, err := f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: "c1", Date: "d"})
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "r1", Date: "d", ParentID: c1.ID})
	require.NoError(t, err)

	top, err := f.svc.CommentsCount(ctx, anon, "hello")
	require.NoError(t, err)
	replies, err := f.svc.RepliesCount(ctx, anon, "hello")
	require.NoError(t, err)
	total, err := f.svc.TotalCount(ctx, anon, "hello")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2}, []int64{top, replies, total})

	// 缓存值由写路径写入
	cached, err := f.counter.GetOrLoad(ctx, "comments:total:hello", func(ctx context.Context) (int64, error) {
		t.Fatal("total should be cached")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached)
}

func TestDelete_LeafIsHardDeleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)

	require.NoError(t, f.svc.Delete(ctx, callerOf(f.alice), "c1"))
	assert.False(t, f.exists(t, "c1"))

	err := f.svc.Delete(ctx, callerOf(f.alice), "c1")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestDelete_OnlyAuthor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)

	err := f.svc.Delete(ctx, callerOf(f.bob), "c1")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
	assert.True(t, f.exists(t, "c1"))

	err = f.svc.Delete(ctx, anon, "c1")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
}

func TestDelete_TombstoneKeepsReplies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	parent := "c1"
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)
	f.seed(t, "r1", f.bob.ID, "hello", &parent, t0.Add(time.Minute))

	require.NoError(t, f.svc.Delete(ctx, callerOf(f.alice), "c1"))

	c1, err := f.repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c1.IsDeleted)

	r1, err := f.repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c1", *r1.ParentID)

	page, err := f.svc.ListPage(ctx, anon, ListInput{Slug: "hello"})
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.True(t, page.Comments[0].IsDeleted)
	assert.Empty(t, page.Comments[0].Body)
	assert.Empty(t, page.Comments[0].BodyHTML)
}

func TestDelete_SiblingKeepsTombstone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	parent := "c1"
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)
	f.seed(t, "r1", f.bob.ID, "hello", &parent, t0.Add(time.Minute))
	f.seed(t, "r2", f.bob.ID, "hello", &parent, t0.Add(2*time.Minute))
	require.NoError(t, f.repo.MarkDeleted(ctx, "c1"))

	require.NoError(t, f.svc.Delete(ctx, callerOf(f.bob), "r1"))
	assert.True(t, f.exists(t, "c1"))
	assert.True(t, f.exists(t, "r2"))
}

func TestDelete_LiveParentIsKept(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	parent := "c1"
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)
	f.seed(t, "r1", f.bob.ID, "hello", &parent, t0.Add(time.Minute))

	require.NoError(t, f.svc.Delete(ctx, callerOf(f.bob), "r1"))
	assert.True(t, f.exists(t, "c1"), "non-tombstoned parent must survive")
}

func TestDelete_ThreadScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("CommentPosted", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("ReplyPosted", mock.Anything, mock.Anything).Return(nil)

	c1, err := f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: "C1", Date: "d"})
	require.NoError(t, err)
	r1, err := f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "R1", Date: "d", ParentID: c1.ID})
	require.NoError(t, err)
	r2, err := f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "R2", Date: "d", ParentID: c1.ID})
	require.NoError(t, err)

	// C1 有两条回复：墓碑
	require.NoError(t, f.svc.Delete(ctx, callerOf(f.alice), c1.ID))
	got, err := f.repo.GetByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	// R1：物理删除，C1 仍有一条回复
	require.NoError(t, f.svc.Delete(ctx, callerOf(f.bob), r1.ID))
	assert.False(t, f.exists(t, r1.ID))
	assert.True(t, f.exists(t, c1.ID))

	// R2：物理删除，C1 失去最后一条回复，一并删除
	require.NoError(t, f.svc.Delete(ctx, callerOf(f.bob), r2.ID))
	assert.False(t, f.exists(t, r2.ID))
	assert.False(t, f.exists(t, c1.ID))

	total, err := f.repo.CountByPost(ctx, "hello", model.ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, total)

	cachedTotal, err := f.svc.TotalCount(ctx, anon, "hello")
	require.NoError(t, err)
	assert.Zero(t, cachedTotal)
}

func TestRateLimit_EleventhCallHasNoSideEffects(t *testing.T) {
	f := newFixture(t, security.NewSlidingWindowLog(security.DefaultLimit))
	ctx := context.Background()
	f.notifier.On("CommentPosted", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 10; i++ {
		_, err := f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: fmt.Sprintf("c%d", i), Date: "d"})
		require.NoError(t, err)
	}

	_, err := f.svc.Post(ctx, callerOf(f.alice), PostInput{Slug: "hello", Content: "eleventh", Date: "d"})
	assert.True(t, apperror.Is(err, apperror.CodeRateLimited))

	total, err := f.repo.CountByPost(ctx, "hello", model.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	// 其他用户不受影响
	_, err = f.svc.Post(ctx, callerOf(f.bob), PostInput{Slug: "hello", Content: "bob", Date: "d"})
	assert.NoError(t, err)
}

func TestAdminList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.db, userModel.RoleAdmin)
	parent := "c1"
	f.seed(t, "c1", f.alice.ID, "hello", nil, t0)
	f.seed(t, "r1", f.bob.ID, "hello", &parent, t0.Add(time.Minute))

	list, err := f.svc.AdminList(ctx, callerOf(admin))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "reply", list[0].Type)
	assert.Equal(t, "comment", list[1].Type)

	_, err = f.svc.AdminList(ctx, callerOf(f.alice))
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}
