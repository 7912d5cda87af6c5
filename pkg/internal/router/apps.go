package router

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/internal/handle"
	"github.com/RadiumAg/image-saas/pkg/middleware"
)

// RegisterAppsRoutes 注册应用与存储配置路由.
// 这些接口的写操作都在同一路由组内，因此可以安全地挂载响应缓存.
func RegisterAppsRoutes(g *gin.RouterGroup, h *handle.Handler, respCache *cache.Cache) {
	var handlers []gin.HandlerFunc
	if respCache != nil {
		handlers = append(handlers, middleware.ResponseCache(respCache, middleware.ResponseCacheTTL))
	}

	meta := g.Group("", handlers...)
	{
		meta.GET("/apps", h.ListApps)
		meta.POST("/apps", h.CreateApp)
		meta.GET("/apps/:appId", h.GetApp)
		meta.PUT("/apps/:appId/storage", h.BindStorage)

		meta.GET("/storages", h.ListStorages)
		meta.POST("/storages", h.CreateStorage)
		meta.PUT("/storages/:id", h.UpdateStorage)
	}
}
