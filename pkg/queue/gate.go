package queue

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// GatedPublisher 按 events 配置丢弃被关闭的文件生命周期事件，识别主题不受影响.
type GatedPublisher struct {
	inner   message.Publisher
	allowed map[string]bool
}

// NewGatedPublisher 包装 inner；events.enabled=false 时所有文件事件都被丢弃.
func NewGatedPublisher(inner message.Publisher, cfg configs.EventsConfig) *GatedPublisher {
	return &GatedPublisher{
		inner: inner,
		allowed: map[string]bool{
			TopicFileSaved:    cfg.Enabled && cfg.File.Saved,
			TopicFileTrashed:  cfg.Enabled && cfg.File.Trashed,
			TopicFileRestored: cfg.Enabled && cfg.File.Restored,
			TopicFilePurged:   cfg.Enabled && cfg.File.Purged,
		},
	}
}

// Enabled 主题是否会被发布.
func (p *GatedPublisher) Enabled(topic string) bool {
	allowed, gated := p.allowed[topic]
	return !gated || allowed
}

func (p *GatedPublisher) Publish(topic string, msgs ...*message.Message) error {
	if !p.Enabled(topic) {
		return nil
	}

	return p.inner.Publish(topic, msgs...)
}

// Close 不关闭 inner，其生命周期由 mq.Client 管理.
func (p *GatedPublisher) Close() error { return nil }
