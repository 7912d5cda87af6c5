package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// zerologAdapter 把 watermill 的日志桥接到 zerolog，统一带上 component=mq.
type zerologAdapter struct {
	l zerolog.Logger
}

func emit(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	if len(fields) > 0 {
		ev = ev.Fields(map[string]any(fields))
	}

	ev.Msg(msg)
}

func (z *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	emit(z.l.Error().Err(err), msg, fields)
}

func (z *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	emit(z.l.Info(), msg, fields)
}

func (z *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	emit(z.l.Debug(), msg, fields)
}

func (z *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	emit(z.l.Trace(), msg, fields)
}

func (z *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zerologAdapter{l: z.l.With().Fields(map[string]any(fields)).Logger()}
}

// NewLogger 创建 watermill 日志适配器.
func NewLogger(l *zerolog.Logger) watermill.LoggerAdapter {
	return &zerologAdapter{l: l.With().Str("component", "mq").Logger()}
}
