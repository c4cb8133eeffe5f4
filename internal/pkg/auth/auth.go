package auth

import (
	"context"

	"blog_api/pkg/apperror"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity 当前登录用户
type Identity struct {
	ID    string
	Name  string
	Email string
	Image string
	Role  string
}

// Caller 请求方：IP 总是存在，User 仅在已登录时存在
type Caller struct {
	IP   string
	User *Identity
}

// Authenticated 是否已登录
func (c Caller) Authenticated() bool {
	return c.User != nil
}

// UserID 未登录时返回空字符串
func (c Caller) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID
}

// Requirement 每个操作声明的访问要求
type Requirement struct {
	RequiresAuth bool
	RequiresRole string
}

var (
	Public = Requirement{}
	User   = Requirement{RequiresAuth: true}
	Admin  = Requirement{RequiresAuth: true, RequiresRole: RoleAdmin}
)

// Check 校验调用方是否满足要求
func (r Requirement) Check(c Caller) error {
	if !r.RequiresAuth && r.RequiresRole == "" {
		return nil
	}
	if c.User == nil {
		return apperror.Unauthorized("login required")
	}
	if r.RequiresRole != "" && c.User.Role != r.RequiresRole {
		return apperror.Forbidden("insufficient role")
	}
	return nil
}

type callerKey struct{}

// WithCaller 把调用方放入 context
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext 读取调用方
func FromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}
