package router

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup, h *handle.Handler) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("", h.Health)
		healthRoutes.GET("/:component", h.HealthComponent)
	}
}
