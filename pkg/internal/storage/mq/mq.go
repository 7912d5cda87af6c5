// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - NATS（支持 JetStream）
//   - Redis Pub/Sub
//   - memory（进程内 gochannel）
//
// Client 封装 Publisher、Subscriber 与一个 Router，消费者通过 AddHandler 注册后由 Run 驱动。
//
// 使用示例：
//
//	client, err := mq.Open(ctx, &cfg.MQ, cfg.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.AddHandler("recognize", queue.TopicRecognizeRequested, func(msg *message.Message) error {
//		env, err := queue.ParseRecognizeRequested(msg)
//		...
//	})
//	go client.Run(ctx)
package mq

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/RadiumAg/image-saas/pkg/configs"
	nlog "github.com/RadiumAg/image-saas/pkg/log"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories   = map[configs.MQType]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher、Subscriber 与 Router.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	closeFunc  func() // 用于关闭metrics服务器
	kind       configs.MQType
}

// Publisher 返回底层 Publisher，供 queue.Publish* 使用.
func (c *Client) Publisher() message.Publisher { return c.publisher }

// Subscriber 返回底层 Subscriber.
func (c *Client) Subscriber() message.Subscriber { return c.subscriber }

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType { return c.kind }

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// AddHandler 在 Router 上注册一个只消费不转发的处理器.
// 必须在 Run 之前调用.
func (c *Client) AddHandler(name, topic string, fn message.NoPublishHandlerFunc) {
	c.router.AddConsumerHandler(name, topic, c.subscriber, fn)
}

// Run 启动 Router，阻塞直到 ctx 结束或 Router 关闭.
// 没有注册任何处理器时 Router 只会因 Close 退出，因此 ctx 结束时主动关闭 Router.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.router.Close()
	}()

	return c.router.Run(ctx)
}

// Running 在 Router 启动完成后关闭.
func (c *Client) Running() chan struct{} { return c.router.Running() }

// HealthCheck 检查 MQ 是否可用：发布一条探测消息.
func (c *Client) HealthCheck(_ context.Context) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("ping"))

	return c.publisher.Publish("is.health.ping", msg)
}

// Close 关闭资源.
func (c *Client) Close() error {
	var err error

	if c.router != nil {
		// 停止 router，确保所有 handler 停止运行
		if e := c.router.Close(); e != nil {
			err = e
		}
	}

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			err = e
		}
	}

	// gochannel 的 Publisher 与 Subscriber 是同一个实例.
	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		if e := c.subscriber.Close(); e != nil {
			err = e
		}
	}

	if c.closeFunc != nil {
		c.closeFunc()
	}

	return err
}

// Open 创建一个新的 Client，不经过单例缓存.
func Open(ctx context.Context, cfg *configs.MQConfig, metricsCfg configs.MetricsConfig) (*Client, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Type]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLogger(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
	)

	var closeFunc func()

	if cfg.Common.EnableMetrics && metricsCfg.Enabled {
		prometheusRegistry, closeMetricsServer := metrics.CreateRegistryAndServeHTTP(metricsCfg.Endpoint)
		closeFunc = closeMetricsServer

		// 创建metrics builder 并绑定 router
		metricsBuilder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "imagesaas", "mq")
		metricsBuilder.AddPrometheusRouterMetrics(router)

		// 装饰publisher和subscriber
		pub, err = metricsBuilder.DecoratePublisher(pub)
		if err != nil {
			closeFunc()
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		sub, err = metricsBuilder.DecorateSubscriber(sub)
		if err != nil {
			closeFunc()
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}

		nlog.Logger().Info().Str("endpoint", metricsCfg.Endpoint).Msg("MQ metrics enabled")
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 管理器已初始化")

	return &Client{publisher: pub, subscriber: sub, router: router, closeFunc: closeFunc, kind: cfg.Type}, nil
}
