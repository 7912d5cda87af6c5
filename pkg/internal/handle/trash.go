package handle

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

// ListTrash 分页列出回收站.
//
//	@Summary	回收站列表
//	@Tags		回收站
//	@Produce	json
//	@Param		appId		path		string	true	"应用ID"
//	@Param		cursor		query		string	false	"游标"
//	@Param		limit		query		int		false	"每页条数"
//	@Param		orderField	query		string	false	"createdAt|deleteAt"
//	@Param		order		query		string	false	"asc|desc"
//	@Success	200			{object}	store.Page[model.File]
//	@Router		/api/v1/apps/{appId}/trash [get]
func (h *Handler) ListTrash(c *gin.Context) {
	var q types.ListTrashQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.svc.Files.ListTrashedPage(c.Request.Context(), caller(c), c.Param("appId"), q)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, page)
}

// RestoreFiles 从回收站恢复.
//
//	@Summary	恢复文件
//	@Tags		回收站
//	@Param		appId	path		string				true	"应用ID"
//	@Param		body	body		types.IDsRequest	true	"文件ID列表"
//	@Success	200		{object}	types.CountResponse
//	@Router		/api/v1/apps/{appId}/trash/restore [post]
func (h *Handler) RestoreFiles(c *gin.Context) {
	h.countAction(c, h.svc.Files.Restore)
}

// PurgeFiles 永久删除回收站中的文件.
//
//	@Summary	永久删除
//	@Tags		回收站
//	@Param		appId	path		string				true	"应用ID"
//	@Param		body	body		types.IDsRequest	true	"文件ID列表"
//	@Success	200		{object}	types.CountResponse
//	@Router		/api/v1/apps/{appId}/trash/purge [post]
func (h *Handler) PurgeFiles(c *gin.Context) {
	h.countAction(c, h.svc.Files.Purge)
}

// SweepTrash 立即清理保留期已过的文件（管理员）.
//
//	@Summary	清理过期回收站
//	@Tags		回收站
//	@Success	200	{object}	types.SweepResponse
//	@Router		/api/v1/trash/sweep [post]
func (h *Handler) SweepTrash(c *gin.Context) {
	resp, err := h.svc.Files.SweepExpired(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, resp)
}

type countFunc func(ctx context.Context, caller types.Caller, appID string, ids []string) (int64, error)

func (h *Handler) countAction(c *gin.Context, fn countFunc) {
	var req types.IDsRequest
	if !bindJSON(c, &req) {
		return
	}

	n, err := fn(c.Request.Context(), caller(c), c.Param("appId"), req.IDs)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, types.CountResponse{Count: n})
}
