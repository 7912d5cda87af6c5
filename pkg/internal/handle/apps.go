package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

// CreateApp 创建应用并初始化默认分类标签.
//
//	@Summary	创建应用
//	@Tags		应用
//	@Param		body	body		types.CreateAppRequest	true	"应用"
//	@Success	201		{object}	model.App
//	@Router		/api/v1/apps [post]
func (h *Handler) CreateApp(c *gin.Context) {
	var req types.CreateAppRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.svc.Apps.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

// ListApps 调用方的应用.
//
//	@Summary	应用列表
//	@Tags		应用
//	@Success	200	{object}	map[string][]model.App
//	@Router		/api/v1/apps [get]
func (h *Handler) ListApps(c *gin.Context) {
	apps, err := h.svc.Apps.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"apps": apps})
}

// GetApp 应用详情.
//
//	@Summary	应用详情
//	@Tags		应用
//	@Param		appId	path		string	true	"应用ID"
//	@Success	200		{object}	model.App
//	@Router		/api/v1/apps/{appId} [get]
func (h *Handler) GetApp(c *gin.Context) {
	app, err := h.svc.Apps.Get(c.Request.Context(), caller(c), c.Param("appId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, app)
}

// BindStorage 切换应用的存储配置.
//
//	@Summary	绑定存储
//	@Tags		应用
//	@Param		appId	path		string						true	"应用ID"
//	@Param		body	body		types.BindStorageRequest	true	"存储配置ID"
//	@Success	200		{object}	model.App
//	@Router		/api/v1/apps/{appId}/storage [put]
func (h *Handler) BindStorage(c *gin.Context) {
	var req types.BindStorageRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.svc.Apps.BindStorage(c.Request.Context(), caller(c), c.Param("appId"), req.StorageID)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, app)
}

// ListStorages 调用方的存储配置，密钥已脱敏.
//
//	@Summary	存储配置列表
//	@Tags		存储
//	@Success	200	{object}	map[string][]model.StorageConfiguration
//	@Router		/api/v1/storages [get]
func (h *Handler) ListStorages(c *gin.Context) {
	list, err := h.svc.Storages.List(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"storages": list})
}

// CreateStorage 登记存储配置.
//
//	@Summary	创建存储配置
//	@Tags		存储
//	@Param		body	body		types.StorageRequest	true	"存储配置"
//	@Success	201		{object}	model.StorageConfiguration
//	@Router		/api/v1/storages [post]
func (h *Handler) CreateStorage(c *gin.Context) {
	var req types.StorageRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Storages.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, st.Redacted())
}

// UpdateStorage 更新存储配置.
//
//	@Summary	更新存储配置
//	@Tags		存储
//	@Param		id		path		int						true	"存储配置ID"
//	@Param		body	body		types.StorageRequest	true	"存储配置"
//	@Success	200		{object}	model.StorageConfiguration
//	@Router		/api/v1/storages/{id} [put]
func (h *Handler) UpdateStorage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, apperr.Validation("invalid storage id", err))
		return
	}

	var req types.StorageRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.svc.Storages.Update(c.Request.Context(), caller(c), uint(id), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, st.Redacted())
}
