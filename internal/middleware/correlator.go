package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelatorKey 是关联标识在 gin.Context 中的键名。
const CorrelatorKey = "correlatorID"

// CorrelatorHeader 是关联标识的请求/响应头名称。
const CorrelatorHeader = "X-Correlator-Id"

// Correlator 为每个请求补齐关联标识：调用方带了就沿用，没带就生成一个，
// 并在响应头里回显，方便跨服务追踪同一轮对话。
func Correlator() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatorID := c.GetHeader(CorrelatorHeader)
		if correlatorID == "" {
			correlatorID = uuid.NewString()
		}
		c.Set(CorrelatorKey, correlatorID)
		c.Header(CorrelatorHeader, correlatorID)
		c.Next()
	}
}
