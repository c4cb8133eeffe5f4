package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blog_api/internal/domain/comment/model"
	"blog_api/internal/domain/comment/service"
	"blog_api/internal/pkg/auth"
	"blog_api/internal/pkg/middleware"
	"blog_api/pkg/apperror"
	"blog_api/pkg/response"
	"blog_api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// MockCommentService is a mock of service.CommentService
type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) ListPage(ctx context.Context, caller auth.Caller, in service.ListInput) (*model.CommentPage, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommentPage), args.Error(1)
}

func (m *MockCommentService) CommentsCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	args := m.Called(ctx, caller, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentService) RepliesCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	args := m.Called(ctx, caller, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentService) TotalCount(ctx context.Context, caller auth.Caller, slug string) (int64, error) {
	args := m.Called(ctx, caller, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCommentService) Post(ctx context.Context, caller auth.Caller, in service.PostInput) (*model.Comment, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockCommentService) Delete(ctx context.Context, caller auth.Caller, id string) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockCommentService) AdminList(ctx context.Context, caller auth.Caller) ([]model.AdminComment, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AdminComment), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
	utils.RegisterValidators()
}

func newRouter(svc service.CommentService) *gin.Engine {
	h := NewCommentHandler(svc)
	r := gin.New()
	r.Use(middleware.IdentityMiddleware(testSecret))
	r.GET("/api/comments", h.GetComments)
	r.GET("/api/comments/count", h.GetCommentsCount)
	r.GET("/api/comments/replies-count", h.GetRepliesCount)
	r.POST("/api/comments", middleware.AuthMiddleware(), h.PostComment)
	r.DELETE("/api/comments/:id", middleware.AuthMiddleware(), h.DeleteComment)
	return r
}

func bearer(t *testing.T, userID string) string {
	tok, _, err := utils.GenerateToken(testSecret, "test", utils.Claims{UserID: userID, Name: "Ada", Role: auth.RoleUser}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(r http.Handler, method, path, body, authHeader string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestGetComments(t *testing.T) {
	svc := new(MockCommentService)
	r := newRouter(svc)

	cursor := "2024-06-01T09:00:00Z"
	svc.On("ListPage", mock.Anything, mock.Anything, service.ListInput{
		Slug: "hello", Sort: model.SortOldest, Limit: 5, HighlightedCommentID: "c9",
	}).Return(&model.CommentPage{Comments: []model.CommentView{{ID: "c9"}}, NextCursor: &cursor}, nil)

	w, resp := serve(r, http.MethodGet, "/api/comments?slug=hello&sort=oldest&limit=5&highlightedCommentId=c9", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
	assert.Contains(t, w.Body.String(), `"nextCursor":"2024-06-01T09:00:00Z"`)

	w, _ = serve(r, http.MethodGet, "/api/comments", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(r, http.MethodGet, "/api/comments?slug=hello&limit=51", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestCountsResponseShape(t *testing.T) {
	svc := new(MockCommentService)
	r := newRouter(svc)
	svc.On("CommentsCount", mock.Anything, mock.Anything, "hello").Return(int64(3), nil)
	svc.On("RepliesCount", mock.Anything, mock.Anything, "hello").Return(int64(0), apperror.RateLimited())

	w, _ := serve(r, http.MethodGet, "/api/comments/count?slug=hello", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":{"comments":3}`)

	w, resp := serve(r, http.MethodGet, "/api/comments/replies-count?slug=hello", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrTooManyRequests, resp.Code)
}

func TestPostComment(t *testing.T) {
	svc := new(MockCommentService)
	r := newRouter(svc)

	svc.On("Post", mock.Anything, mock.MatchedBy(func(c auth.Caller) bool { return c.UserID() == "u1" }), service.PostInput{
		Slug: "hello", Content: "nice", Date: "June 1", ParentID: "c1",
	}).Return(&model.Comment{}, nil)

	body := `{"slug":"hello","content":"nice","date":"June 1","parentId":"c1"}`
	w, _ := serve(r, http.MethodPost, "/api/comments", body, bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(r, http.MethodPost, "/api/comments", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = serve(r, http.MethodPost, "/api/comments", `{"slug":"hello","content":"   ","date":"d"}`, bearer(t, "u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNumberOfCalls(t, "Post", 1)
}

func TestDeleteComment(t *testing.T) {
	svc := new(MockCommentService)
	r := newRouter(svc)
	svc.On("Delete", mock.Anything, mock.Anything, "c1").Return(nil)
	svc.On("Delete", mock.Anything, mock.Anything, "c2").Return(apperror.Unauthorized("you can only delete your own comments"))
	svc.On("Delete", mock.Anything, mock.Anything, "c3").Return(apperror.NotFound("Comment"))

	w, _ := serve(r, http.MethodDelete, "/api/comments/c1", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(r, http.MethodDelete, "/api/comments/c2", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := serve(r, http.MethodDelete, "/api/comments/c3", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Comment not found", resp.Message)
}
