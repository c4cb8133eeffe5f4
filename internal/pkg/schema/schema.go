package schema

import (
	commentModel "blog_api/internal/domain/comment/model"
	postModel "blog_api/internal/domain/post/model"
	userModel "blog_api/internal/domain/user/model"

	"gorm.io/gorm"
)

// Models 所有需要建表的模型，按依赖顺序排列
func Models() []interface{} {
	return []interface{}{
		&userModel.User{},
		&commentModel.Comment{},
		&commentModel.Rate{},
		&postModel.Post{},
		&postModel.LikeSession{},
	}
}

// AutoMigrate 开发环境/测试使用；生产环境走 migrations/*.sql
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
