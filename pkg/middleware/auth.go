package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/configs"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

// AuthMiddleware 从请求头提取调用方身份并写入 request context.
//   - 依次读取 conf.UserHeader、X-Auth-Request-Email、X-Forwarded-Email（oauth2-proxy）
//   - 配置的跳过路径不要求身份
//   - dev_allow_query 打开时允许 ?user= 兜底
//
// 未开启时仍然提取身份，缺失由 service 返回 Unauthorized.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	headers := []string{"X-Auth-Request-Email", "X-Forwarded-Email"}
	if conf.UserHeader != "" {
		headers = append([]string{conf.UserHeader}, headers...)
	}

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		user := ""
		for _, h := range headers {
			if user = strings.TrimSpace(c.GetHeader(h)); user != "" {
				break
			}
		}

		if user == "" && conf.DevAllowQuery {
			user = strings.TrimSpace(c.Query("user"))
		}

		if user == "" {
			if conf.Enabled {
				AbortWithError(c, apperr.Unauthorized("unauthorized", nil))
				return
			}

			c.Next()

			return
		}

		caller := types.Caller{UserID: user, Admin: slices.Contains(conf.Admins, user)}
		c.Set(string(ctxPkg.CallerKey), caller)
		c.Request = c.Request.WithContext(ctxPkg.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// GetCaller 返回当前请求的调用方，未认证时为零值.
func GetCaller(c *gin.Context) types.Caller {
	if v, ok := c.Get(string(ctxPkg.CallerKey)); ok {
		if caller, ok := v.(types.Caller); ok {
			return caller
		}
	}

	caller, _ := ctxPkg.GetCaller(c.Request.Context())

	return caller
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
