package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 gochannel Pub/Sub，Publisher 与 Subscriber 为同一实例.
// 消息不跨进程，仅适用于单实例部署与测试.
func memoryFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Memory.OutputBuffer,
		Persistent:          cfg.Memory.Persistent,
	}, logger)

	return ps, ps, nil
}
