// Package service 实现文件生命周期、标签、识别与应用管理的业务逻辑.
//
// 依赖通过 Deps 显式注入，调用方身份由 handler 以 types.Caller 传入.
package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/configs"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/queue"
)

// Producer 事件头中的生产者名称.
const Producer = "image-saas"

// DefaultPresignExpiry 预签名上传地址有效期.
const DefaultPresignExpiry = 120 * time.Second

// Deps service 依赖；Publisher 与 Cache 可以为 nil.
type Deps struct {
	DB         *gorm.DB
	Publisher  message.Publisher
	Presigner  s3.Presigner
	Classifier recognizer.Classifier
	Cache      *cache.Cache
	Clock      lifecycle.Clock

	Lifecycle     configs.LifecycleConfig
	Recognizer    configs.RecognizerConfig
	PresignExpiry time.Duration
}

// Services 全部业务服务.
type Services struct {
	Files     *FileService
	Tags      *TagService
	Recognize *RecognizeService
	Apps      *AppService
	Storages  *StorageService
}

// New 组装服务.
func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = lifecycle.SystemClock
	}

	if d.Classifier == nil {
		d.Classifier = recognizer.None{}
	}

	if d.PresignExpiry <= 0 {
		d.PresignExpiry = DefaultPresignExpiry
	}

	if d.Lifecycle.TrashRetention <= 0 {
		d.Lifecycle.TrashRetention = lifecycle.DefaultRetention
	}

	if d.Lifecycle.DefaultLimit <= 0 {
		d.Lifecycle.DefaultLimit = configs.DefaultListLimit
	}

	if d.Lifecycle.MaxLimit <= 0 {
		d.Lifecycle.MaxLimit = configs.DefaultMaxListLimit
	}

	if d.Lifecycle.SweepBatch <= 0 {
		d.Lifecycle.SweepBatch = configs.DefaultSweepBatch
	}

	fileStore := store.NewFileStore(d.DB)
	tagStore := store.NewTagStore(d.DB)
	appStore := store.NewAppStore(d.DB)
	storageStore := store.NewStorageStore(d.DB)

	tags := &TagService{
		tags:     tagStore,
		files:    fileStore,
		apps:     appStore,
		cache:    d.Cache,
		cacheTTL: time.Duration(d.Lifecycle.CacheTTL) * time.Second,
		clock:    d.Clock,
	}

	storages := &StorageService{storages: storageStore, clock: d.Clock}

	apps := &AppService{apps: appStore, storages: storageStore, tags: tags, clock: d.Clock}

	files := &FileService{
		files:         fileStore,
		apps:          apps,
		pub:           d.Publisher,
		presigner:     d.Presigner,
		tags:          tags,
		clock:         d.Clock,
		cfg:           d.Lifecycle,
		presignExpiry: d.PresignExpiry,
		autoRecognize: d.Recognizer.AutoOnSave,
	}

	rec := &RecognizeService{
		files:      fileStore,
		tags:       tags,
		classifier: d.Classifier,
		pub:        d.Publisher,
		provider:   d.Recognizer.Provider,
	}

	return &Services{Files: files, Tags: tags, Recognize: rec, Apps: apps, Storages: storages}
}

func requireCaller(c types.Caller) error {
	if !c.Valid() {
		return apperr.Unauthorized("caller is not authenticated", nil)
	}

	return nil
}

// publish 发布事件，publisher 未配置时跳过；发布失败只记录日志.
func publish[T any](ctx context.Context, pub message.Publisher, topic string, payload T) {
	if pub == nil {
		return
	}

	opts := []func(*queue.EventHeader){queue.WithProducer(Producer)}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	if err := queue.Publish(pub, topic, payload, opts...); err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}
