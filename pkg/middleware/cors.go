package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// CORSMiddleware CORS中间件，origins 为空或包含 * 时允许所有来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()

	if cfg.Debug || len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.CORSOrigins
	}

	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-User", "X-Cache-Bypass")
	config.ExposeHeaders = []string{"ETag", "X-Cache"}

	return cors.New(config)
}
