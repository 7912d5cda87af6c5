package types

import "github.com/RadiumAg/image-saas/pkg/internal/model"

// CreateAppRequest 创建应用.
type CreateAppRequest struct {
	Name        string `json:"name"        rule:"required,min=1,max=100"`
	Description string `json:"description" rule:"max=500"`
	StorageID   *uint  `json:"storageId"`
}

// BindStorageRequest 为应用绑定存储配置.
type BindStorageRequest struct {
	StorageID uint `json:"storageId" rule:"required"`
}

// StorageRequest 创建或更新存储配置.
type StorageRequest struct {
	Name          string              `json:"name"          rule:"required,min=3,max=50"`
	Configuration model.S3Credentials `json:"configuration"`
}
