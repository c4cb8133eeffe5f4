package model

import "time"

// CommentUser 评论作者
type CommentUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Role  string `json:"role"`
}

// CommentView 列表中的一条评论（含统计）
type CommentView struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	ParentID  *string     `json:"parentId"`
	Body      string      `json:"body"`
	BodyHTML  string      `json:"bodyHtml"`
	CreatedAt time.Time   `json:"createdAt"`
	IsDeleted bool        `json:"isDeleted"`
	Replies   int64       `json:"replies"`
	Likes     int64       `json:"likes"`
	Dislikes  int64       `json:"dislikes"`
	Liked     *bool       `json:"liked"` // 当前用户的评价，未登录或未评价为 null
	User      CommentUser `json:"user"`
}

// CommentPage 游标分页结果
type CommentPage struct {
	Comments   []CommentView `json:"comments"`
	NextCursor *string       `json:"nextCursor"`
}

// AdminComment 后台评论列表项
type AdminComment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	ParentID  *string   `json:"parentId"`
	Body      string    `json:"body"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"` // comment | reply
}
