package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"blog_api/pkg/logger"
	"blog_api/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// HealthStatus 依赖检查结果
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health 健康检查：并发 ping 数据库与 Redis，任一失败返回 503
// rdb 为空时跳过 Redis 检查
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		checks := map[string]func(context.Context) error{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}
		if rdb != nil {
			checks["redis"] = func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}
		}

		status := HealthStatus{Status: "ok", Services: make(map[string]string, len(checks))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, check := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := "up"
				if err := check(ctx); err != nil {
					logger.Log.Warn("health check failed", zap.String("service", name), zap.Error(err))
					result = "down"
				}
				mu.Lock()
				status.Services[name] = result
				if result != "up" {
					status.Status = "degraded"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		if status.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Code:    response.ErrServerInternal,
				Message: "service unavailable",
				Data:    status,
			})
			return
		}
		response.Success(c, status)
	}
}
