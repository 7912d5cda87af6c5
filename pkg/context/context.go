// Package context 拓展上下文功能，将调用者身份与追踪信息集成到上下文中.
//
// 身份只由鉴权中间件写入；服务层从处理器显式接收 types.Caller，不从上下文读取.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/RadiumAg/image-saas/pkg/internal/types"
	nlog "github.com/RadiumAg/image-saas/pkg/log"
)

type ContextKey string

const (
	CallerKey ContextKey = "caller"
)

// WithCaller 将调用者身份存储到 context 中.
func WithCaller(ctx context.Context, caller types.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller 从 context 中获取调用者身份.
func GetCaller(ctx context.Context) (types.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(types.Caller)
	return caller, ok && caller.Valid()
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}

// Logger 返回附带追踪信息与调用者的全局 logger.
func Logger(ctx context.Context) *zerolog.Logger {
	l := WithTraceContext(ctx, *nlog.Logger())
	if caller, ok := GetCaller(ctx); ok {
		l = l.With().Str("user", caller.UserID).Logger()
	}

	return &l
}
