package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/queue"
	"github.com/RadiumAg/image-saas/pkg/tracing"
)

// RecognizeService 调用识别器并把结果写成文件标签.
type RecognizeService struct {
	files      *store.FileStore
	tags       *TagService
	classifier recognizer.Classifier
	pub        message.Publisher
	provider   string
}

// RecognizeForFile 同步识别；上游失败时降级为 success=false 的空结果，不返回错误.
func (s *RecognizeService) RecognizeForFile(ctx context.Context, caller types.Caller, fileID, imageURL string) (types.RecognizeResponse, error) {
	if err := requireCaller(caller); err != nil {
		return types.RecognizeResponse{}, err
	}

	file, err := s.files.FindOwned(ctx, fileID, caller.UserID)
	if err != nil {
		return types.RecognizeResponse{}, err
	}

	tags, err := s.recognize(ctx, file, imageURL)
	if err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("file", file.ID).Msg("recognize tags failed")

		return types.RecognizeResponse{Success: false, Tags: []model.Tag{}, Message: "AI 识别失败，请稍后重试"}, nil
	}

	if len(tags) == 0 {
		return types.RecognizeResponse{Success: true, Tags: tags, Message: "未识别到标签"}, nil
	}

	return types.RecognizeResponse{Success: true, Tags: tags, Message: "识别完成"}, nil
}

func (s *RecognizeService) recognize(ctx context.Context, file *model.File, imageURL string) ([]model.Tag, error) {
	ctx, span := tracing.StartSpan(ctx, "recognize.classify", tracing.WithFile(file.ID))
	defer span.End()

	if imageURL == "" {
		imageURL = file.URL
	}

	labels, err := s.classifier.Classify(ctx, imageURL)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	return s.tags.attachLabels(ctx, file, labels)
}

// Enqueue 发布异步识别请求，未配置 MQ 时返回 UpstreamUnavailable.
func (s *RecognizeService) Enqueue(ctx context.Context, caller types.Caller, fileID, imageURL string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	file, err := s.files.FindOwned(ctx, fileID, caller.UserID)
	if err != nil {
		return err
	}

	if s.pub == nil {
		return apperr.UpstreamUnavailable("message queue is not configured", nil)
	}

	publish(ctx, s.pub, queue.TopicRecognizeRequested, queue.RecognizeRequestedPayload{
		File: fileRef(file), ImageURL: imageURL,
	})

	return nil
}

// HandleSaved 文件登记后按需发起异步识别.
func (s *RecognizeService) HandleSaved(msg *message.Message) error {
	env, err := queue.ParseFileSaved(msg)
	if err != nil {
		return err
	}

	if !env.Payload.Recognize || s.provider == "" || s.provider == recognizer.ProviderNone {
		return nil
	}

	publish(msg.Context(), s.pub, queue.TopicRecognizeRequested, queue.RecognizeRequestedPayload{File: env.Payload.File})

	return nil
}

// HandleRequested 消费识别请求. 文件已被永久删除时直接确认；识别失败发布失败事件后确认，
// 不交给重试中间件，避免在上游故障时放大请求.
func (s *RecognizeService) HandleRequested(msg *message.Message) error {
	env, err := queue.ParseRecognizeRequested(msg)
	if err != nil {
		return err
	}

	ctx := msg.Context()
	ref := env.Payload.File
	l := ctxPkg.Logger(ctx).With().Str("file", ref.ID).Logger()

	file, err := s.files.FindByID(ctx, ref.ID, ref.OwnerID, ref.AppID)
	if err != nil {
		if isNotFound(err) {
			l.Debug().Msg("file gone before recognition")
			return nil
		}

		return err
	}

	tags, err := s.recognize(ctx, file, env.Payload.ImageURL)
	if err != nil {
		l.Warn().Err(err).Msg("background recognition failed")
		publish(ctx, s.pub, queue.TopicRecognizeFailed, queue.RecognizeFailedPayload{File: ref, Error: err.Error()})

		return nil
	}

	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}

	l.Info().Strs("tags", names).Msg("recognized tags attached")
	publish(ctx, s.pub, queue.TopicRecognized, queue.RecognizedPayload{File: ref, Tags: names})

	return nil
}
