// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、文件生命周期、分页与 AI 识别指标.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.LifecycleTransitions.WithLabelValues("delete").Add(float64(n))
//	metrics.ListingPageSize.WithLabelValues("active").Observe(float64(len(items)))
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// LifecycleTransitions 文件状态迁移次数，按事件统计受影响的行数.
	LifecycleTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Number of files moved between lifecycle states",
		},
		[]string{"event"},
	)

	// ListingPageSize 每页返回的文件数.
	ListingPageSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_page_size",
			Help:    "Number of items returned per listing page",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"state"},
	)

	// RecognizerRequests AI 识别调用结果.
	RecognizerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognizer_requests_total",
			Help: "AI tag recognition calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// RequestsInFlight 正在处理的请求数.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RateLimited 被限流拒绝的请求.
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"mode"},
	)

	// BreakerState 熔断器状态：0 关闭，1 半开，2 打开.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)

		// 注册标准收集器
		if config.RuntimeMetrics {
			if err = reg.Register(collectors.NewGoCollector()); err != nil {
				return
			}

			if err = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
				return
			}
		}

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration, RequestsInFlight, RateLimited, BreakerState,
			LifecycleTransitions, ListingPageSize, RecognizerRequests,
		} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})

	return err
}

// StartMetricsServer 在 engine 上挂载指标与 pprof 端点.
// gorm 连接池指标注册在默认注册表，这里一并输出.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	engine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
