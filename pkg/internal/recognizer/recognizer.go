// Package recognizer 调用外部视觉模型为图片生成标签.
//
// 所有后端都通过 New 包装熔断与超时：上游不可用时返回 apperr.UpstreamUnavailable，
// 调用方据此降级为空结果.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/metrics"
)

// 后端名称.
const (
	ProviderSpark = "spark"
	ProviderNone  = "none"
)

// MaxLabelRunes 单个识别标签的最大字符数.
const MaxLabelRunes = 10

// Classifier 根据图片地址返回候选标签.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) ([]string, error)
}

// ClassifierFunc 便于测试与组合.
type ClassifierFunc func(ctx context.Context, imageURL string) ([]string, error)

func (f ClassifierFunc) Classify(ctx context.Context, imageURL string) ([]string, error) {
	return f(ctx, imageURL)
}

// None 不做识别，总是返回空.
type None struct{}

func (None) Classify(context.Context, string) ([]string, error) { return []string{}, nil }

var (
	separators = regexp.MustCompile(`[,，、\s]+`)
	markdown   = strings.NewReplacer("**", "", "`", "")
)

// ParseLabels 把模型输出拆成标签：去掉 markdown 标记，按中英文逗号、顿号与空白切分，
// 只保留 1..10 个字符的非重复标签.
func ParseLabels(text string) []string {
	text = markdown.Replace(text)

	out := []string{}
	seen := map[string]struct{}{}

	for _, part := range separators.Split(text, -1) {
		part = strings.TrimSpace(part)

		n := utf8.RuneCountInString(part)
		if n < 1 || n > MaxLabelRunes {
			continue
		}

		if _, ok := seen[part]; ok {
			continue
		}

		seen[part] = struct{}{}
		out = append(out, part)
	}

	return out
}

// New 按配置创建识别器.
func New(cfg configs.RecognizerConfig) (Classifier, error) {
	var (
		inner Classifier
		err   error
	)

	switch cfg.Provider {
	case "", ProviderNone:
		return None{}, nil
	case ProviderSpark:
		inner, err = NewSpark(cfg.Spark, cfg.Prompt, cfg.MaxImageBytes)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported recognizer provider: %s", cfg.Provider)
	}

	return Guard(inner, cfg.Provider, cfg.Timeout, cfg.Breaker), nil
}

// Guarded 为识别器加上超时、熔断与指标.
type Guarded struct {
	inner    Classifier
	provider string
	timeout  time.Duration
	cb       *gobreaker.CircuitBreaker
}

// Guard 包装 inner；breaker 未启用时只做超时控制.
func Guard(inner Classifier, provider string, timeout time.Duration, breaker configs.CircuitBreakerConfig) *Guarded {
	if timeout <= 0 {
		timeout = configs.DefaultRecognizerTimeout
	}

	g := &Guarded{inner: inner, provider: provider, timeout: timeout}

	if breaker.Enabled {
		g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "recognizer-" + provider,
			MaxRequests: breaker.MaxRequestsInHalf,
			Interval:    time.Duration(breaker.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(breaker.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < breaker.MinRequests {
					return false
				}

				return float64(counts.TotalFailures)/float64(counts.Requests) >= breaker.FailureRate
			},
		})
	}

	return g
}

// Classify 执行识别；任何上游失败都转换为 UpstreamUnavailable.
func (g *Guarded) Classify(ctx context.Context, imageURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	call := func() (any, error) { return g.inner.Classify(ctx, imageURL) }

	var (
		out any
		err error
	)

	if g.cb != nil {
		out, err = g.cb.Execute(call)
	} else {
		out, err = call()
	}

	switch {
	case err == nil:
		metrics.RecognizerRequests.WithLabelValues(g.provider, "ok").Inc()

		labels, _ := out.([]string)
		if labels == nil {
			labels = []string{}
		}

		return labels, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecognizerRequests.WithLabelValues(g.provider, "rejected").Inc()
		return nil, apperr.UpstreamUnavailable("recognizer is temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.RecognizerRequests.WithLabelValues(g.provider, "timeout").Inc()
		return nil, apperr.UpstreamUnavailable("recognizer timed out", err)
	default:
		metrics.RecognizerRequests.WithLabelValues(g.provider, "error").Inc()
		return nil, apperr.UpstreamUnavailable("recognizer failed", err)
	}
}

// State 熔断器状态，未启用时为 closed.
func (g *Guarded) State() string {
	if g.cb == nil {
		return gobreaker.StateClosed.String()
	}

	return g.cb.State().String()
}
