// Package router 管理路由配置，负责把 handle 中的处理器绑定到 gin 路由组.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/internal/handle"
	"github.com/RadiumAg/image-saas/pkg/middleware"
)

// Register 在 /api/v1 路由组上注册全部路由.
// respCache 非 nil 时为应用与存储配置的读接口开启按调用方隔离的响应缓存.
func Register(v1 *gin.RouterGroup, h *handle.Handler, respCache *cache.Cache) {
	RegisterHealthCheckRoute(v1, h)
	RegisterFilesRoutes(v1, h)
	RegisterTagsRoutes(v1, h)
	RegisterAppsRoutes(v1, h, respCache)

	admin := v1.Group("", middleware.RequireMinRole(middleware.RoleAdmin))
	RegisterSchedulerRoutes(admin, h)
	RegisterTrashAdminRoutes(admin, h)
}
