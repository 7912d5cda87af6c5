// Package mq 提供 NATS 消息队列操作实现。
// 此文件包含 NATS 特定的工厂函数，用于创建配置了可选 JetStream 支持的 Publisher 和 Subscriber 实例。
//
// 支持的功能特性：
//   - 连接池和重连机制
//   - 多种认证方式（JWT、NKey、用户名/密码）
//   - JetStream 持久化消息
//   - 通过主题前缀实现负载均衡
//   - 主题前缀与队列组
//
// 配置从 configs.MQConfig 读取，支持集群 URL 以实现高可用性。
package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

const (
	DefaultDrainTimeout  = 30 * time.Second
	DefaultStreamMaxMsgs = 10 * time.Second
)

// init 注册 NATS 工厂.
func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQConfig) []nc.Option {
	c := cfg.Common
	opts := []nc.Option{
		nc.Name(c.ClientID),
		nc.MaxReconnects(c.MaxReconnects),
		nc.ReconnectWait(time.Duration(c.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(c.PingInterval) * time.Second),
		nc.ReconnectBufSize(c.BufferSize),
		nc.DrainTimeout(DefaultDrainTimeout),
		nc.FlusherTimeout(DefaultStreamMaxMsgs),
		nc.RetryOnFailedConnect(true),
	}

	// 添加认证选项
	opts = appendAuthOptions(opts, cfg)

	return opts
}

// appendAuthOptions 添加认证选项.
func appendAuthOptions(opts []nc.Option, cfg *configs.MQConfig) []nc.Option {
	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case cfg.NATS.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NATS.NKey, nil))
	case cfg.Common.User != "":
		opts = append(opts, nc.UserInfo(cfg.Common.User, cfg.Common.Password))
	}

	return opts
}

// buildJetStreamConfig 构建 JetStream 配置.
func buildJetStreamConfig(cfg *configs.MQConfig, logger watermill.LoggerAdapter) nats.JetStreamConfig {
	n := cfg.NATS
	jsCfg := nats.JetStreamConfig{
		Disabled: !n.JetStreamEnabled,
	}

	if n.JetStreamEnabled {
		// 设置自动创建流
		jsCfg.AutoProvision = n.JetStreamAutoProvision

		// 设置消息跟踪以防止重复
		jsCfg.TrackMsgId = n.JetStreamTrackMsgID

		// 设置异步确认
		jsCfg.AckAsync = n.JetStreamAckAsync

		// 设置持久化前缀
		jsCfg.DurablePrefix = n.JetStreamDurablePrefix

		logger.Info("JetStream 配置信息", watermill.LogFields{
			"auto_provision": n.JetStreamAutoProvision,
			"track_msg_id":   n.JetStreamTrackMsgID,
			"ack_async":      n.JetStreamAckAsync,
			"durable_prefix": n.JetStreamDurablePrefix,
			"subject_prefix": n.SubjectPrefix,
		})
	}

	return jsCfg
}

// buildURL 构建连接 URL.
func buildURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

// subjectCalculator 为主题加上配置的前缀，多个部署可共用一个 NATS 集群.
func subjectCalculator(prefix string) nats.SubjectCalculator {
	return func(queueGroupPrefix, topic string) *nats.SubjectDetail {
		detail := nats.DefaultSubjectCalculator(queueGroupPrefix, prefix+topic)

		return detail
	}
}

// natsFactory 创建 NATS Publisher & Subscriber.
// 支持 JetStream 流配置，包括：
//   - AutoProvision: 自动创建缺失的流
//   - TrackMsgId: 跟踪消息ID防止重复处理
//   - AckAsync: 异步确认提高性能
//   - DurablePrefix: 持久化订阅前缀
func natsFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg, logger)
	marshaler := &nats.JSONMarshaler{}

	// 创建 Publisher
	pub, err := createPublisher(opts, jsCfg, marshaler, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	// 创建 Subscriber
	sub, err := createSubscriber(opts, jsCfg, marshaler, cfg, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}

// createPublisher 创建 Publisher.
func createPublisher(
	opts []nc.Option,
	jsCfg nats.JetStreamConfig,
	marshaler *nats.JSONMarshaler,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (message.Publisher, error) {
	pubCfg := nats.PublisherConfig{
		NatsOptions:       opts,
		JetStream:         jsCfg,
		Marshaler:         marshaler,
		URL:               buildURL(cfg),
		SubjectCalculator: subjectCalculator(cfg.NATS.SubjectPrefix),
	}

	return nats.NewPublisher(pubCfg, logger)
}

// createSubscriber 创建 Subscriber.
// QueueGroupPrefix 让同一服务的多个实例分摊消费.
func createSubscriber(
	opts []nc.Option,
	jsCfg nats.JetStreamConfig,
	marshaler *nats.JSONMarshaler,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subCfg := nats.SubscriberConfig{
		NatsOptions:       opts,
		JetStream:         jsCfg,
		Unmarshaler:       marshaler,
		URL:               buildURL(cfg),
		QueueGroupPrefix:  cfg.NATS.QueueGroupPrefix,
		SubjectCalculator: subjectCalculator(cfg.NATS.SubjectPrefix),
		AckWaitTimeout:    30 * time.Second,
	}

	if cfg.Common.EnableMetrics {
		logger.Info("NATS 指标已启用", nil)
	}

	return nats.NewSubscriber(subCfg, logger)
}
