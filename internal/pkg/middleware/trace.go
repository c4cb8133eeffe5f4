package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const traceIDKey = "traceID"

// TraceMiddleware 添加请求追踪ID
// 开启 OpenTelemetry 时复用 span 的 TraceID，否则沿用请求头或生成新的
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ""
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = c.GetHeader("X-Trace-ID")
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 设置到 context 和响应头
		c.Set(traceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}
