package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/invitebatch/pkg/jwt"
	"github.com/d60-Lab/invitebatch/pkg/response"
)

const (
	ctxUserID = "auth.user_id"
	ctxOrgID  = "auth.org_id"
	ctxRole   = "auth.role"
)

// Auth 校验 Bearer 令牌，把用户、组织、角色写入上下文
func Auth(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing or invalid authorization")
			c.Abort()
			return
		}
		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxOrgID, claims.OrgID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireOrg 路径中的 org_id 必须与令牌所属组织一致
func RequireOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID := c.Param("org_id"); orgID == "" || orgID != OrgID(c) {
			response.Forbidden(c, "organisation mismatch")
			c.Abort()
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

func OrgID(c *gin.Context) string { return c.GetString(ctxOrgID) }

func Role(c *gin.Context) string { return c.GetString(ctxRole) }
