package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
)

// Role 表示请求方的角色，数值越大权限越高.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

// String 返回角色的字符串表示.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	case RoleAnonymous:
		fallthrough
	default:
		return "anonymous"
	}
}

// GetRole 根据调用方推导角色，管理员来自 auth.admins 配置.
func GetRole(c *gin.Context) Role {
	caller := GetCaller(c)

	switch {
	case !caller.Valid():
		return RoleAnonymous
	case caller.Admin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// RequireMinRole 要求最小角色；未认证返回 401，权限不足返回 403.
func RequireMinRole(minRole Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := GetRole(c)

		switch {
		case r >= minRole:
			c.Next()
		case r == RoleAnonymous:
			AbortWithError(c, apperr.Unauthorized("unauthorized", nil))
		default:
			AbortWithError(c, apperr.Forbidden("insufficient role: requires "+minRole.String(), nil))
		}
	}
}
