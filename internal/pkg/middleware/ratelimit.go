package middleware

import (
	"net/http"
	"sync"
	"time"

	"blog_api/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const maxTrackedIPs = 10000

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 存储每个IP的限流器
// 只做进程内的防刷保护，业务级限流走 Redis 滑动窗口
type IPRateLimiter struct {
	ips map[string]*ipLimiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
	ttl time.Duration
}

// NewIPRateLimiter 创建一个新的IP限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipLimiter),
		r:   r,
		b:   b,
		ttl: 10 * time.Minute,
	}
}

// GetLimiter 获取指定IP的限流器
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	entry, exists := i.ips[ip]
	if !exists {
		if len(i.ips) >= maxTrackedIPs {
			i.evict(now)
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

// evict 清理长时间未访问的 IP，调用方需持有锁
func (i *IPRateLimiter) evict(now time.Time) {
	for ip, entry := range i.ips {
		if now.Sub(entry.lastSeen) > i.ttl {
			delete(i.ips, ip)
		}
	}
}

// RateLimitMiddleware 限流中间件
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := limiter.GetLimiter(c.ClientIP())
		if !l.Allow() {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
