// Package log 提供基于 zerolog 的全局日志，支持控制台文本、JSON 与 lumberjack 轮转文件.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按全局配置初始化 logger，只执行一次.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || cfg.Log.Level == "" {
		fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", cfg.Log.Level)

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger = New(io.MultiWriter(writers(cfg.Log)...), cfg.Server.Debug)
	log.Logger = logger
}

// writers 控制台输出在容器里用 JSON，本地用彩色文本；可选再写一份轮转文件.
func writers(cfg configs.LogConfig) []io.Writer {
	var out []io.Writer

	if cfg.JSON {
		out = append(out, os.Stderr)
	} else {
		out = append(out, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.DateTime
		}))
	}

	if cfg.EnableFile {
		out = append(out, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	return out
}

// New 创建带时间戳与应用名的 logger，debug 时附带调用位置.
func New(w io.Writer, debug bool) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp().Str("app", configs.AppName)
	if debug {
		ctx = ctx.Caller().Stack()
	}

	return ctx.Logger()
}

// Logger 返回全局 logger，首次调用时初始化.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// GinWriter 把 gin 的文本输出转为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 以 level 为基础级别转发 gin 输出，带 [WARNING] 的行提升为 warn.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	lvl := w.level
	if lvl < zerolog.WarnLevel && strings.Contains(msg, "[WARNING]") {
		lvl = zerolog.WarnLevel
	}

	msg = strings.TrimSpace(strings.TrimPrefix(msg, "[GIN-debug]"))
	w.logger.WithLevel(lvl).Str("component", "gin").Msg(msg)

	return len(p), nil
}
