package model

import (
	"time"

	userModel "blog_api/internal/domain/user/model"
	baseModel "blog_api/pkg/model"
)

// CommentType 列表类型
type CommentType string

const (
	TypeComments CommentType = "comments" // 顶级评论
	TypeReplies  CommentType = "replies"  // 回复
)

// SortOrder 排序方式
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// Comment 评论模型
// ParentID 只是查找键，不建立内存中的树
type Comment struct {
	baseModel.BaseModel
	Body      string  `gorm:"type:text;not null" json:"body"`
	UserID    string  `gorm:"type:varchar(36);not null;index" json:"userId"`
	PostID    string  `gorm:"not null;index" json:"postId"` // 文章 slug
	ParentID  *string `gorm:"type:varchar(36);index" json:"parentId"`
	IsDeleted bool    `gorm:"not null;default:false" json:"isDeleted"` // 墓碑：仍有回复时保留结构

	// 关联
	User userModel.User `gorm:"foreignKey:UserID" json:"-"`
}

// IsReply 是否为回复
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Rate 评论的赞/踩，每个用户对每条评论最多一条
type Rate struct {
	UserID    string `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	CommentID string `gorm:"primaryKey;type:varchar(36)" json:"commentId"`
	Like      bool   `gorm:"not null" json:"like"`

	User    userModel.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Comment Comment        `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
}

// ListQuery 分页查询条件
type ListQuery struct {
	PostID    string
	ParentID  *string
	Type      CommentType
	Sort      SortOrder
	Cursor    *time.Time
	Limit     int
	ExcludeID string
}

// CountScope 计数范围
type CountScope int

const (
	ScopeAll      CountScope = iota // 全部
	ScopeTopLevel                   // 顶级评论
	ScopeReplies                    // 回复
)
