package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/service"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

const userIDKey = "user_id"

// TokenParser 由 service.AuthService 实现
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth 要求合法的 Bearer token
func Auth(tp TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := tp.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// OptionalAuth 有 token 时解析，无效或缺失时按匿名处理
func OptionalAuth(tp TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" {
			if claims, err := tp.ParseToken(token); err == nil {
				c.Set(userIDKey, claims.Subject)
			}
		}
		c.Next()
	}
}

// CurrentUserID 匿名请求返回空串
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
