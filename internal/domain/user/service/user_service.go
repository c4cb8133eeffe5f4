package service

import (
	"context"

	"blog_api/internal/domain/user/model"
	"blog_api/internal/domain/user/repository"
	"blog_api/internal/pkg/auth"
	"blog_api/pkg/utils"
)

// UserService 用户服务接口
type UserService interface {
	GetUsers(ctx context.Context, caller auth.Caller, page utils.Pagination) (*utils.PageResult, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// GetUsers 后台用户列表，仅管理员
func (s *userService) GetUsers(ctx context.Context, caller auth.Caller, page utils.Pagination) (*utils.PageResult, error) {
	if err := auth.Admin.Check(caller); err != nil {
		return nil, err
	}

	offset, limit := page.GetPageOffset()
	users, total, err := s.repo.GetList(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}

	return &utils.PageResult{
		List:  users,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	}, nil
}
