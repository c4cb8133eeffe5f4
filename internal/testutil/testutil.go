package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	userModel "blog_api/internal/domain/user/model"
	"blog_api/internal/pkg/schema"
	"blog_api/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB 每个测试独立的内存 SQLite，已建表
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.NewSQLite(dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, schema.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewTestRedis 启动 miniredis
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// CreateUser 写入一个随机用户
func CreateUser(t *testing.T, db *gorm.DB, role string) *userModel.User {
	t.Helper()

	u := &userModel.User{
		Name:  gofakeit.Name(),
		Email: uuid.NewString()[:8] + "." + gofakeit.Username() + "@example.com",
		Role:  role,
	}
	u.CreatedAt = time.Now().UTC()
	require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	return u
}
