package middleware

import (
	"AltarProject/service/callable"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID gin.Context 中保存请求 ID 的 key
const ContextKeyRequestID = "request_id"

// RequestID 透传或生成 X-Request-Id，同时写入 gin.Context 与 request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(callable.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(callable.WithRequestID(c.Request.Context(), id))
		c.Header(callable.HeaderRequestID, id)
	}
}
