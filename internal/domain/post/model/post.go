package model

import "time"

// MaxSessionLikes 每个会话对同一篇文章最多点赞次数
const MaxSessionLikes = 3

// Post 文章聚合计数，首次浏览/点赞时创建
type Post struct {
	Slug      string    `gorm:"primaryKey" json:"slug"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	Likes     int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeSession 匿名会话在某篇文章上已用掉的点赞数
// ID 由 slug 与 IP 派生，见 utils.LikeSessionID
type LikeSession struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Likes     int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName likes_sessions
func (LikeSession) TableName() string {
	return "likes_sessions"
}
