package types

import "github.com/RadiumAg/image-saas/pkg/internal/model"

// AttachTagsRequest attachTags 请求体.
type AttachTagsRequest struct {
	TagNames []string `json:"tagNames" rule:"required,min=1,max=50"`
}

// TagsResponse 标签列表.
type TagsResponse struct {
	Tags []model.Tag `json:"tags"`
}

// DetachTagsRequest detachTags 请求体，TagIDs 为空时移除全部标签.
type DetachTagsRequest struct {
	TagIDs []string `json:"tagIds" rule:"omitempty,max=200,dive,required"`
}

// SuccessResponse 通用成功响应.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RecognizeRequest recognizeTagsForFile 请求体，ImageURL 为空时使用文件地址.
type RecognizeRequest struct {
	ImageURL string `json:"imageUrl" rule:"omitempty,url"`
}

// RecognizeResponse 识别结果，失败时 Success 为 false 且 Tags 为空.
type RecognizeResponse struct {
	Success bool        `json:"success"`
	Tags    []model.Tag `json:"tags"`
	Message string      `json:"message"`
}

// CreateTagRequest 创建标签.
type CreateTagRequest struct {
	AppID        string  `json:"appId"        rule:"required"`
	Name         string  `json:"name"         rule:"required,tagname"`
	Color        string  `json:"color"        rule:"omitempty,color"`
	CategoryType *string `json:"categoryType" rule:"omitempty,oneof=person location event"`
	ParentID     *string `json:"parentId"`
	Sort         int     `json:"sort"`
}

// UpdateTagRequest 更新标签，未提供的字段不修改.
type UpdateTagRequest struct {
	Name         *string `json:"name"         rule:"omitempty,tagname"`
	Color        *string `json:"color"        rule:"omitempty,color"`
	CategoryType *string `json:"categoryType" rule:"omitempty,oneof=person location event"`
	ParentID     *string `json:"parentId"`
	Sort         *int    `json:"sort"`
}

// CleanupResponse 清理未使用标签的结果.
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}
