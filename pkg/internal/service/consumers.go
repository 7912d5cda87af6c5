package service

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/RadiumAg/image-saas/pkg/queue"
)

// HandlerRegistrar 注册消费者，由 mq.Client 实现.
type HandlerRegistrar interface {
	AddHandler(name, topic string, fn message.NoPublishHandlerFunc)
}

// RegisterConsumers 注册后台消费者：识别，以及 removeBlobs 为 true 时的对象存储清理.
func (s *Services) RegisterConsumers(r HandlerRegistrar, removeBlobs bool) {
	r.AddHandler("recognize.on_saved", queue.TopicFileSaved, s.Recognize.HandleSaved)
	r.AddHandler("recognize.requested", queue.TopicRecognizeRequested, s.Recognize.HandleRequested)

	if removeBlobs {
		r.AddHandler("blob.cleanup", queue.TopicFilePurged, s.Files.HandlePurged)
	}
}
