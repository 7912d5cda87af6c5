package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

// AttachTags 为文件添加标签，不存在的标签自动创建.
//
//	@Summary	添加标签
//	@Tags		标签
//	@Accept		json
//	@Produce	json
//	@Param		fileId	path		string					true	"文件ID"
//	@Param		body	body		types.AttachTagsRequest	true	"标签名"
//	@Success	200		{object}	types.TagsResponse
//	@Router		/api/v1/files/{fileId}/tags [post]
func (h *Handler) AttachTags(c *gin.Context) {
	var req types.AttachTagsRequest
	if !bindJSON(c, &req) {
		return
	}

	tags, err := h.svc.Tags.Attach(c.Request.Context(), caller(c), c.Param("fileId"), req.TagNames)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, types.TagsResponse{Tags: tags})
}

// DetachTags 移除文件标签，tagIds 为空时移除全部.
//
//	@Summary	移除标签
//	@Tags		标签
//	@Param		fileId	path		string					true	"文件ID"
//	@Param		body	body		types.DetachTagsRequest	false	"标签ID"
//	@Success	200		{object}	types.SuccessResponse
//	@Router		/api/v1/files/{fileId}/tags [delete]
func (h *Handler) DetachTags(c *gin.Context) {
	var req types.DetachTagsRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.svc.Tags.Detach(c.Request.Context(), caller(c), c.Param("fileId"), req.TagIDs); err != nil {
		fail(c, err)
		return
	}

	ok(c, types.SuccessResponse{Success: true})
}

// ListFileTags 文件上的标签.
//
//	@Summary	文件标签
//	@Tags		标签
//	@Param		fileId	path		string	true	"文件ID"
//	@Success	200		{object}	types.TagsResponse
//	@Router		/api/v1/files/{fileId}/tags [get]
func (h *Handler) ListFileTags(c *gin.Context) {
	tags, err := h.svc.Tags.ListForFile(c.Request.Context(), caller(c), c.Param("fileId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, types.TagsResponse{Tags: tags})
}

// ListAppTags 应用内标签及文件数.
//
//	@Summary	应用标签
//	@Tags		标签
//	@Param		appId	path		string	true	"应用ID"
//	@Success	200		{object}	map[string][]model.TagWithCount
//	@Router		/api/v1/apps/{appId}/tags [get]
func (h *Handler) ListAppTags(c *gin.Context) {
	tags, err := h.svc.Tags.ListUserTags(c.Request.Context(), caller(c), c.Param("appId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"tags": tags})
}

// ListCategories 按分类组织的标签树.
//
//	@Summary	分类标签
//	@Tags		标签
//	@Param		appId	path		string	true	"应用ID"
//	@Success	200		{object}	map[string][]model.TagWithCount
//	@Router		/api/v1/apps/{appId}/tags/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	tags, err := h.svc.Tags.ListByCategory(c.Request.Context(), caller(c), c.Param("appId"))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"tags": tags})
}

// CreateTag 创建标签.
//
//	@Summary	创建标签
//	@Tags		标签
//	@Param		body	body		types.CreateTagRequest	true	"标签"
//	@Success	201		{object}	model.Tag
//	@Failure	409		{object}	middleware.ErrorBody
//	@Router		/api/v1/tags [post]
func (h *Handler) CreateTag(c *gin.Context) {
	var req types.CreateTagRequest
	if !bindJSON(c, &req) {
		return
	}

	tag, err := h.svc.Tags.Create(c.Request.Context(), caller(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tag)
}

// UpdateTag 更新标签.
//
//	@Summary	更新标签
//	@Tags		标签
//	@Param		tagId	path		string					true	"标签ID"
//	@Param		body	body		types.UpdateTagRequest	true	"变更字段"
//	@Success	200		{object}	model.Tag
//	@Router		/api/v1/tags/{tagId} [patch]
func (h *Handler) UpdateTag(c *gin.Context) {
	var req types.UpdateTagRequest
	if !bindJSON(c, &req) {
		return
	}

	tag, err := h.svc.Tags.Update(c.Request.Context(), caller(c), c.Param("tagId"), req)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, tag)
}

// DeleteTag 删除标签及其关联.
//
//	@Summary	删除标签
//	@Tags		标签
//	@Param		tagId	path		string	true	"标签ID"
//	@Success	200		{object}	types.SuccessResponse
//	@Router		/api/v1/tags/{tagId} [delete]
func (h *Handler) DeleteTag(c *gin.Context) {
	if err := h.svc.Tags.Delete(c.Request.Context(), caller(c), c.Param("tagId")); err != nil {
		fail(c, err)
		return
	}

	ok(c, types.SuccessResponse{Success: true})
}

// CleanupTags 删除没有关联文件的非分类标签.
//
//	@Summary	清理未使用标签
//	@Tags		标签
//	@Success	200	{object}	types.CleanupResponse
//	@Router		/api/v1/tags/cleanup [post]
func (h *Handler) CleanupTags(c *gin.Context) {
	n, err := h.svc.Tags.CleanupUnused(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, types.CleanupResponse{Deleted: n})
}

// RecognizeTags AI 识别图片并添加标签；async=true 时投递到队列后立即返回.
//
//	@Summary	AI 识别标签
//	@Tags		标签
//	@Param		fileId	path		string					true	"文件ID"
//	@Param		async	query		bool					false	"异步识别"
//	@Param		body	body		types.RecognizeRequest	false	"图片地址"
//	@Success	200		{object}	types.RecognizeResponse
//	@Success	202		{object}	map[string]bool
//	@Router		/api/v1/files/{fileId}/recognize [post]
func (h *Handler) RecognizeTags(c *gin.Context) {
	var req types.RecognizeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if err := h.svc.Recognize.Enqueue(ctx, caller(c), c.Param("fileId"), req.ImageURL); err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"queued": true})

		return
	}

	resp, err := h.svc.Recognize.RecognizeForFile(ctx, caller(c), c.Param("fileId"), req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, resp)
}
