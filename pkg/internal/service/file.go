package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/configs"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/ids"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/query"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/metrics"
	"github.com/RadiumAg/image-saas/pkg/queue"
	"github.com/RadiumAg/image-saas/pkg/tracing"
)

type FileService struct {
	files     *store.FileStore
	apps      *AppService
	tags      *TagService
	pub       message.Publisher
	presigner s3.Presigner
	clock     lifecycle.Clock
	cfg       configs.LifecycleConfig

	presignExpiry time.Duration
	autoRecognize bool
}

func (s *FileService) limits() query.Limits {
	return query.Limits{Default: s.cfg.DefaultLimit, Max: s.cfg.MaxLimit}
}

func (s *FileService) list(ctx context.Context, d query.Descriptor) (store.Page[model.File], error) {
	ctx, span := tracing.StartSpan(ctx, "files.list")
	defer span.End()

	plan, err := query.Build(d, s.limits())
	if err != nil {
		return store.Page[model.File]{}, err
	}

	span.SetAttributes(
		tracing.AttrAppID.String(plan.AppID),
		attribute.String("state", string(plan.State)),
		attribute.Int("limit", plan.Limit),
	)

	page, err := s.files.ListPage(ctx, plan)
	if err != nil {
		tracing.RecordError(span, err)
		return page, err
	}

	metrics.ListingPageSize.WithLabelValues(string(plan.State)).Observe(float64(len(page.Items)))

	return page, nil
}

// ListFilesPage 列出应用中的正常文件，可按标签过滤.
func (s *FileService) ListFilesPage(ctx context.Context, caller types.Caller, appID string, q types.ListFilesQuery) (store.Page[model.File], error) {
	if err := requireCaller(caller); err != nil {
		return store.Page[model.File]{}, err
	}

	return s.list(ctx, query.Descriptor{
		OwnerID:   caller.UserID,
		AppID:     appID,
		TagID:     q.TagID,
		State:     lifecycle.Active,
		SortField: q.OrderField,
		SortOrder: q.Order,
		Cursor:    q.Cursor,
		Limit:     q.Limit,
	})
}

// ListTrashedPage 列出回收站中的文件，默认按删除时间倒序.
func (s *FileService) ListTrashedPage(ctx context.Context, caller types.Caller, appID string, q types.ListTrashQuery) (store.Page[model.File], error) {
	if err := requireCaller(caller); err != nil {
		return store.Page[model.File]{}, err
	}

	return s.list(ctx, query.Descriptor{
		OwnerID:   caller.UserID,
		AppID:     appID,
		State:     lifecycle.Trashed,
		SortField: q.OrderField,
		SortOrder: q.Order,
		Cursor:    q.Cursor,
		Limit:     q.Limit,
	})
}

// Get 返回调用方的文件，不区分状态.
func (s *FileService) Get(ctx context.Context, caller types.Caller, fileID string) (*model.File, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	return s.files.FindOwned(ctx, fileID, caller.UserID)
}

// SoftDelete 将文件移入回收站并返回实际迁移的数量.
func (s *FileService) SoftDelete(ctx context.Context, caller types.Caller, appID string, ids []string) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	marks := lifecycle.TrashMarks(s.clock(), s.cfg.TrashRetention)

	moved, err := s.files.SoftDelete(ctx, ids, caller.UserID, appID, marks)
	if err != nil {
		return 0, err
	}

	n := int64(len(moved))

	if n > 0 {
		metrics.LifecycleTransitions.WithLabelValues(string(lifecycle.Delete)).Add(float64(n))
		s.tags.invalidate(ctx, caller.UserID)
		publish(ctx, s.pub, queue.TopicFileTrashed, queue.FilesTrashedPayload{
			OwnerID: caller.UserID, AppID: appID, IDs: moved, Count: n,
			DeleteAt: marks.DeleteAt, Expiration: marks.Expiration,
		})
	}

	ctxPkg.Logger(ctx).Info().Str("app", appID).Int("requested", len(ids)).Int64("trashed", n).Msg("files moved to trash")

	return n, nil
}

// Restore 把回收站中的文件恢复为正常状态.
func (s *FileService) Restore(ctx context.Context, caller types.Caller, appID string, ids []string) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	moved, err := s.files.Restore(ctx, ids, caller.UserID, appID)
	if err != nil {
		return 0, err
	}

	n := int64(len(moved))

	if n > 0 {
		metrics.LifecycleTransitions.WithLabelValues(string(lifecycle.Restore)).Add(float64(n))
		s.tags.invalidate(ctx, caller.UserID)
		publish(ctx, s.pub, queue.TopicFileRestored, queue.FilesRestoredPayload{
			OwnerID: caller.UserID, AppID: appID, IDs: moved, Count: n,
		})
	}

	return n, nil
}

// Purge 永久删除文件及其标签关联，对象存储中的 blob 由消费者异步删除.
func (s *FileService) Purge(ctx context.Context, caller types.Caller, appID string, ids []string) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	purged, err := s.files.Purge(ctx, ids, caller.UserID, appID)
	if err != nil {
		return 0, err
	}

	n := int64(len(purged))
	if n > 0 {
		metrics.LifecycleTransitions.WithLabelValues(string(lifecycle.Purge)).Add(float64(n))
		s.tags.invalidate(ctx, caller.UserID)
		publish(ctx, s.pub, queue.TopicFilePurged, queue.FilesPurgedPayload{
			Files: fileRefs(purged), Reason: queue.PurgeReasonManual,
		})
	}

	return n, nil
}

// SweepExpired 分批清理已过期的回收站文件.
func (s *FileService) SweepExpired(ctx context.Context) (types.SweepResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "files.sweep_expired")
	defer span.End()

	var res types.SweepResponse

	now := s.clock()
	batch := s.cfg.SweepBatch

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		purged, err := s.files.PurgeExpired(ctx, now, batch)
		if err != nil {
			return res, err
		}

		if len(purged) == 0 {
			break
		}

		res.Batches++
		res.Purged += len(purged)

		owners := map[string]struct{}{}
		for i := range purged {
			owners[purged[i].OwnerID] = struct{}{}
		}

		for owner := range owners {
			s.tags.invalidate(ctx, owner)
		}

		metrics.LifecycleTransitions.WithLabelValues(string(lifecycle.Expire)).Add(float64(len(purged)))
		publish(ctx, s.pub, queue.TopicFilePurged, queue.FilesPurgedPayload{
			Files: fileRefs(purged), Reason: queue.PurgeReasonExpired,
		})

		if len(purged) < batch {
			break
		}
	}

	span.SetAttributes(attribute.Int("purged", res.Purged))

	return res, nil
}

// Save 登记已上传的文件，path 取自 url 的路径部分.
func (s *FileService) Save(ctx context.Context, caller types.Caller, appID string, req types.SaveFileRequest) (*model.File, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if _, err := s.apps.owned(ctx, caller, appID); err != nil {
		return nil, err
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Path == "" {
		return nil, apperr.Validation("url must contain a path", err)
	}

	now := s.clock()
	f := &model.File{
		ID:          ids.NewAt(now),
		AppID:       appID,
		OwnerID:     caller.UserID,
		Name:        req.Name,
		Path:        u.Path,
		URL:         req.URL,
		ContentType: req.Type,
		CreatedAt:   now,
	}

	if err := s.files.Insert(ctx, f); err != nil {
		return nil, err
	}

	recognize := s.autoRecognize
	if req.Recognize != nil {
		recognize = *req.Recognize
	}

	publish(ctx, s.pub, queue.TopicFileSaved, queue.FileSavedPayload{
		File:      fileRef(f),
		Recognize: recognize && strings.HasPrefix(f.ContentType, "image/"),
	})

	return f, nil
}

// CreatePresignedURL 使用应用绑定的存储签发直传地址.
func (s *FileService) CreatePresignedURL(ctx context.Context, caller types.Caller, appID string, req types.PresignRequest) (types.PresignResponse, error) {
	if err := requireCaller(caller); err != nil {
		return types.PresignResponse{}, err
	}

	app, err := s.apps.owned(ctx, caller, appID)
	if err != nil {
		return types.PresignResponse{}, err
	}

	if app.Storage == nil {
		return types.PresignResponse{}, apperr.Validation("app has no storage configured", nil)
	}

	if s.presigner == nil {
		return types.PresignResponse{}, apperr.UpstreamUnavailable("object storage is not configured", nil)
	}

	out, err := s.presigner.PresignPut(ctx, app.Storage.Configuration, s3.PutObjectInput{
		Key:         s3.ObjectKey(s.clock(), req.Filename),
		ContentType: req.ContentType,
		Size:        req.Size,
		Expiry:      s.presignExpiry,
	})
	if err != nil {
		return types.PresignResponse{}, apperr.UpstreamUnavailable("failed to presign upload", err)
	}

	return types.PresignResponse{URL: out.URL, Method: out.Method, Key: out.Key, ExpiresAt: out.ExpiresAt}, nil
}

// HandlePurged 删除已永久删除文件在对象存储中的 blob，失败只记录日志.
func (s *FileService) HandlePurged(msg *message.Message) error {
	env, err := queue.ParseFilesPurged(msg)
	if err != nil {
		return err
	}

	ctx := msg.Context()
	l := ctxPkg.Logger(ctx).With().Str("reason", env.Payload.Reason).Logger()

	if s.presigner == nil {
		return nil
	}

	creds := map[string]*model.S3Credentials{}

	for _, f := range env.Payload.Files {
		c, ok := creds[f.AppID]
		if !ok {
			app, err := s.apps.apps.Get(ctx, f.AppID)
			if err == nil && app.Storage != nil {
				c = &app.Storage.Configuration
			}

			creds[f.AppID] = c
		}

		if c == nil {
			l.Debug().Str("file", f.ID).Msg("no storage for purged file, skip blob removal")
			continue
		}

		key := s3.KeyFromPath(c.Bucket, f.Path)
		if err := s.presigner.RemoveObject(ctx, *c, key); err != nil {
			l.Warn().Err(err).Str("file", f.ID).Str("key", key).Msg("remove blob failed")
			continue
		}

		l.Debug().Str("file", f.ID).Str("key", key).Msg("blob removed")
	}

	return nil
}

func fileRef(f *model.File) queue.FileRef {
	return queue.FileRef{
		ID: f.ID, AppID: f.AppID, OwnerID: f.OwnerID, Name: f.Name,
		Path: f.Path, URL: f.URL, ContentType: f.ContentType,
	}
}

func fileRefs(files []model.File) []queue.FileRef {
	out := make([]queue.FileRef, 0, len(files))
	for i := range files {
		out = append(out, fileRef(&files[i]))
	}

	return out
}

// isNotFound 区分业务 NotFound 与其他错误.
func isNotFound(err error) bool {
	var appErr *apperr.AppError

	return errors.As(err, &appErr) && appErr.Code == apperr.CodeNotFound
}
