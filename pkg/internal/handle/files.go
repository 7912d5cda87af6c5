package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

// ListFiles 分页列出应用中的文件.
//
//	@Summary	文件列表
//	@Tags		文件
//	@Produce	json
//	@Param		appId		path		string	true	"应用ID"
//	@Param		tagId		query		string	false	"按标签过滤"
//	@Param		cursor		query		string	false	"游标"
//	@Param		limit		query		int		false	"每页条数(默认20, 最大100)"
//	@Param		orderField	query		string	false	"createdAt|deleteAt"
//	@Param		order		query		string	false	"asc|desc"
//	@Success	200			{object}	store.Page[model.File]
//	@Failure	400			{object}	middleware.ErrorBody
//	@Router		/api/v1/apps/{appId}/files [get]
func (h *Handler) ListFiles(c *gin.Context) {
	var q types.ListFilesQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.svc.Files.ListFilesPage(c.Request.Context(), caller(c), c.Param("appId"), q)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, page)
}

// SoftDeleteFiles 把文件移入回收站.
//
//	@Summary	批量删除文件(移入回收站)
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		appId	path		string				true	"应用ID"
//	@Param		body	body		types.IDsRequest	true	"文件ID列表"
//	@Success	200		{object}	types.CountResponse
//	@Failure	400		{object}	middleware.ErrorBody
//	@Router		/api/v1/apps/{appId}/files/delete [post]
func (h *Handler) SoftDeleteFiles(c *gin.Context) {
	h.countAction(c, h.svc.Files.SoftDelete)
}

// PresignUpload 生成预签名上传地址.
//
//	@Summary	预签名上传
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		appId	path		string					true	"应用ID"
//	@Param		body	body		types.PresignRequest	true	"文件信息"
//	@Success	200		{object}	types.PresignResponse
//	@Failure	503		{object}	middleware.ErrorBody
//	@Router		/api/v1/apps/{appId}/files/presign [post]
func (h *Handler) PresignUpload(c *gin.Context) {
	var req types.PresignRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Files.CreatePresignedURL(c.Request.Context(), caller(c), c.Param("appId"), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, resp)
}

// SaveFile 登记已上传完成的文件.
//
//	@Summary	保存文件记录
//	@Tags		文件
//	@Accept		json
//	@Produce	json
//	@Param		appId	path		string					true	"应用ID"
//	@Param		body	body		types.SaveFileRequest	true	"文件信息"
//	@Success	201		{object}	model.File
//	@Router		/api/v1/apps/{appId}/files [post]
func (h *Handler) SaveFile(c *gin.Context) {
	var req types.SaveFileRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.svc.Files.Save(c.Request.Context(), caller(c), c.Param("appId"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, f)
}

// GetFile 获取单个文件.
//
//	@Summary	文件详情
//	@Tags		文件
//	@Param		fileId	path		string	true	"文件ID"
//	@Success	200		{object}	model.File
//	@Failure	404		{object}	middleware.ErrorBody
//	@Router		/api/v1/files/{fileId} [get]
func (h *Handler) GetFile(c *gin.Context) {
	f, err := h.svc.Files.Get(c.Request.Context(), caller(c), c.Param("fileId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, f)
}
