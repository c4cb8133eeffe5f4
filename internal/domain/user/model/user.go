package model

import (
	baseModel "blog_api/pkg/model"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 用户模型
// 由外部认证服务创建，这里只读
type User struct {
	baseModel.BaseModel
	Name  string  `gorm:"not null" json:"name"`
	Email string  `gorm:"uniqueIndex;not null" json:"email"`
	Image *string `json:"image"`
	Role  string  `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
}
