package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"blog_api/internal/domain/comment/model"
	userModel "blog_api/internal/domain/user/model"
	"blog_api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newComment(id, userID, slug string, parentID *string, at time.Time) *model.Comment {
	c := &model.Comment{
		Body:     "body of " + id,
		UserID:   userID,
		PostID:   slug,
		ParentID: parentID,
	}
	c.ID = id
	c.CreatedAt = at
	return c
}

func setup(t *testing.T) (CommentRepository, *gorm.DB, *userModel.User) {
	db := testutil.NewTestDB(t)
	u := testutil.CreateUser(t, db, userModel.RoleUser)
	return NewCommentRepository(db), db, u
}

func TestCreateAndGet(t *testing.T) {
	repo, _, u := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newComment("c1", u.ID, "hello", nil, base)))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.PostID)
	assert.Equal(t, u.Name, got.User.Name)
	assert.False(t, got.IsDeleted)
	assert.True(t, base.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestList_FiltersAndCursor(t *testing.T) {
	repo, _, u := setup(t)
	ctx := context.Background()

	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, repo.Create(ctx, newComment(id, u.ID, "hello", nil, base.Add(time.Duration(i)*time.Minute))))
	}
	parent := "c1"
	require.NoError(t, repo.Create(ctx, newComment("r1", u.ID, "hello", &parent, base.Add(10*time.Minute))))
	require.NoError(t, repo.Create(ctx, newComment("other", u.ID, "world", nil, base)))

	ids := func(cs []model.Comment) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.ID
		}
		return out
	}

	top, err := repo.List(ctx, model.ListQuery{PostID: "hello", Type: model.TypeComments, Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2", "c1"}, ids(top))

	oldest, err := repo.List(ctx, model.ListQuery{PostID: "hello", Type: model.TypeComments, Sort: model.SortOldest, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids(oldest))

	cursor := base.Add(2 * time.Minute)
	after, err := repo.List(ctx, model.ListQuery{PostID: "hello", Type: model.TypeComments, Sort: model.SortNewest, Cursor: &cursor, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, ids(after))

	excl, err := repo.List(ctx, model.ListQuery{PostID: "hello", Type: model.TypeComments, Sort: model.SortNewest, Limit: 10, ExcludeID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1"}, ids(excl))

	replies, err := repo.List(ctx, model.ListQuery{PostID: "hello", ParentID: &parent, Type: model.TypeReplies, Sort: model.SortOldest, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(replies))

	// 类型与 parentId 不一致时结果为空
	none, err := repo.List(ctx, model.ListQuery{PostID: "hello", Type: model.TypeReplies, Sort: model.SortNewest, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCounts(t *testing.T) {
	repo, db, u := setup(t)
	ctx := context.Background()
	other := testutil.CreateUser(t, db, userModel.RoleUser)

	parent := "c1"
	require.NoError(t, repo.Create(ctx, newComment("c1", u.ID, "hello", nil, base)))
	require.NoError(t, repo.Create(ctx, newComment("r1", u.ID, "hello", &parent, base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newComment("r2", other.ID, "hello", &parent, base.Add(2*time.Minute))))

	n, err := repo.CountReplies(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, _ := repo.CountByPost(ctx, "hello", model.ScopeAll)
	top, _ := repo.CountByPost(ctx, "hello", model.ScopeTopLevel)
	rep, _ := repo.CountByPost(ctx, "hello", model.ScopeReplies)
	assert.Equal(t, []int64{3, 1, 2}, []int64{all, top, rep})

	require.NoError(t, db.Omit("User", "Comment").Create(&model.Rate{UserID: u.ID, CommentID: "c1", Like: true}).Error)
	require.NoError(t, db.Omit("User", "Comment").Create(&model.Rate{UserID: other.ID, CommentID: "c1", Like: false}).Error)

	likes, err := repo.CountRates(ctx, "c1", true)
	require.NoError(t, err)
	dislikes, err := repo.CountRates(ctx, "c1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), likes)
	assert.Equal(t, int64(1), dislikes)

	rate, err := repo.GetRate(ctx, other.ID, "c1")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.False(t, rate.Like)

	rate, err = repo.GetRate(ctx, other.ID, "r1")
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestMarkDeletedAndDelete(t *testing.T) {
	repo, db, u := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newComment("c1", u.ID, "hello", nil, base)))
	require.NoError(t, db.Omit("User", "Comment").Create(&model.Rate{UserID: u.ID, CommentID: "c1", Like: true}).Error)

	require.NoError(t, repo.MarkDeleted(ctx, "c1"))
	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.GetByID(ctx, "c1")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var rates int64
	require.NoError(t, db.Model(&model.Rate{}).Count(&rates).Error)
	assert.Zero(t, rates)
}

func TestTransactionRollback(t *testing.T) {
	repo, _, u := setup(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx CommentRepository) error {
		if err := tx.Create(ctx, newComment("c1", u.ID, "hello", nil, base)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, "c1")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestListAll(t *testing.T) {
	repo, _, u := setup(t)
	ctx := context.Background()

	parent := "c1"
	require.NoError(t, repo.Create(ctx, newComment("c1", u.ID, "hello", nil, base)))
	require.NoError(t, repo.Create(ctx, newComment("r1", u.ID, "hello", &parent, base.Add(time.Minute))))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].ID)
}
