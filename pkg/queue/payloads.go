package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 文件生命周期领域 --------------------------

// FileRef 标识一个文件记录及其对象存储位置.
type FileRef struct {
	ID      string `json:"id"`
	AppID   string `json:"app_id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	// ContentType 用于消费者判断是否为图片.
	ContentType string `json:"content_type,omitempty"`
}

// FileSavedPayload 文件记录写入完成.
type FileSavedPayload struct {
	File FileRef `json:"file"`
	// Recognize 为 true 时下游会追加一次异步识别.
	Recognize bool `json:"recognize,omitempty"`
}

// FilesTrashedPayload 一批文件进入回收站.
type FilesTrashedPayload struct {
	OwnerID    string    `json:"owner_id"`
	AppID      string    `json:"app_id"`
	IDs        []string  `json:"ids"`
	Count      int64     `json:"count"`
	DeleteAt   time.Time `json:"delete_at"`
	Expiration time.Time `json:"expiration"`
}

// FilesRestoredPayload 一批文件从回收站恢复.
type FilesRestoredPayload struct {
	OwnerID string   `json:"owner_id"`
	AppID   string   `json:"app_id"`
	IDs     []string `json:"ids"`
	Count   int64    `json:"count"`
}

// FilesPurgedPayload 文件被永久删除，携带对象位置以便清理存储.
type FilesPurgedPayload struct {
	Files []FileRef `json:"files"`
	// Reason 为 manual 或 expired.
	Reason string `json:"reason"`
}

// 永久删除原因.
const (
	PurgeReasonManual  = "manual"
	PurgeReasonExpired = "expired"
)

// -------------------------- 图像识别领域 --------------------------

// RecognizeRequestedPayload 请求识别图片并写入标签.
type RecognizeRequestedPayload struct {
	File     FileRef `json:"file"`
	ImageURL string  `json:"image_url,omitempty"`
}

// RecognizedPayload 识别完成.
type RecognizedPayload struct {
	File FileRef  `json:"file"`
	Tags []string `json:"tags"`
}

// RecognizeFailedPayload 识别失败.
type RecognizeFailedPayload struct {
	File  FileRef `json:"file"`
	Error string  `json:"error"`
}
