package types

import "time"

// PresignRequest 申请上传地址.
type PresignRequest struct {
	Filename    string `json:"filename"    rule:"required,max=255"`
	ContentType string `json:"contentType" rule:"required,max=255"`
	Size        int64  `json:"size"        rule:"min=0"`
}

// PresignResponse 预签名上传结果，客户端以 Method 直传到 URL.
type PresignResponse struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SaveFileRequest 上传完成后登记文件.
type SaveFileRequest struct {
	Name string `json:"name" rule:"required,max=512"`
	URL  string `json:"url"  rule:"required,url,max=2048"`
	Type string `json:"type" rule:"required,max=255"`
	// Recognize 为 nil 时按配置决定是否自动识别
	Recognize *bool `json:"recognize"`
}
