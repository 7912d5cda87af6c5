package router

import (
	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件与回收站路由.
func RegisterFilesRoutes(g *gin.RouterGroup, h *handle.Handler) {
	appFiles := g.Group("/apps/:appId")
	{
		appFiles.GET("/files", h.ListFiles)
		appFiles.POST("/files", h.SaveFile)
		appFiles.POST("/files/presign", h.PresignUpload)
		appFiles.POST("/files/delete", h.SoftDeleteFiles)

		// 回收站
		appFiles.GET("/trash", h.ListTrash)
		appFiles.POST("/trash/restore", h.RestoreFiles)
		appFiles.POST("/trash/purge", h.PurgeFiles)
	}

	single := g.Group("/files/:fileId")
	{
		single.GET("", h.GetFile)
		single.GET("/tags", h.ListFileTags)
		single.POST("/tags", h.AttachTags)
		single.DELETE("/tags", h.DetachTags)
		single.POST("/recognize", h.RecognizeTags)
	}
}

// RegisterTrashAdminRoutes 注册需要管理员权限的回收站路由.
func RegisterTrashAdminRoutes(g *gin.RouterGroup, h *handle.Handler) {
	g.POST("/trash/sweep", h.SweepTrash)
}

// RegisterTagsRoutes 注册标签管理路由.
func RegisterTagsRoutes(g *gin.RouterGroup, h *handle.Handler) {
	g.GET("/apps/:appId/tags", h.ListAppTags)
	g.GET("/apps/:appId/tags/categories", h.ListCategories)

	tags := g.Group("/tags")
	{
		tags.POST("", h.CreateTag)
		tags.POST("/cleanup", h.CleanupTags)
		tags.PATCH("/:tagId", h.UpdateTag)
		tags.DELETE("/:tagId", h.DeleteTag)
	}
}
