package service

import (
	"context"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/ids"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/rule"
)

// AppService 应用管理.
type AppService struct {
	apps     *store.AppStore
	storages *store.StorageStore
	tags     *TagService
	clock    lifecycle.Clock
}

// owned 返回调用方的应用；不存在为 NotFound，属于他人为 Forbidden.
func (s *AppService) owned(ctx context.Context, caller types.Caller, appID string) (*model.App, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}

	if app.OwnerID != caller.UserID {
		return nil, apperr.Forbidden("app belongs to another user", nil)
	}

	return app, nil
}

// Create 创建应用并为调用方初始化分类根标签.
func (s *AppService) Create(ctx context.Context, caller types.Caller, req types.CreateAppRequest) (*model.App, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if req.StorageID != nil {
		if _, err := ownedStorage(ctx, s.storages, caller, *req.StorageID); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	app := &model.App{
		ID:          ids.NewAt(now),
		OwnerID:     caller.UserID,
		Name:        req.Name,
		Description: req.Description,
		StorageID:   req.StorageID,
		CreatedAt:   now,
	}

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	if _, err := s.tags.SeedDefaults(ctx, caller.UserID, app.ID); err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("app", app.ID).Msg("seed default tags failed")
	}

	return app, nil
}

func (s *AppService) List(ctx context.Context, caller types.Caller) ([]model.App, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	apps, err := s.apps.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	for i := range apps {
		apps[i].Storage = nil
	}

	return apps, nil
}

func (s *AppService) Get(ctx context.Context, caller types.Caller, appID string) (*model.App, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	app, err := s.owned(ctx, caller, appID)
	if err != nil {
		return nil, err
	}

	if app.Storage != nil {
		redacted := app.Storage.Redacted()
		app.Storage = &redacted
	}

	return app, nil
}

// BindStorage 为应用绑定调用方自己的存储配置.
func (s *AppService) BindStorage(ctx context.Context, caller types.Caller, appID string, storageID uint) (*model.App, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if _, err := s.owned(ctx, caller, appID); err != nil {
		return nil, err
	}

	if _, err := ownedStorage(ctx, s.storages, caller, storageID); err != nil {
		return nil, err
	}

	if err := s.apps.BindStorage(ctx, appID, storageID); err != nil {
		return nil, err
	}

	return s.Get(ctx, caller, appID)
}

// StorageService 存储配置管理，响应中的密钥总是脱敏.
type StorageService struct {
	storages *store.StorageStore
	clock    lifecycle.Clock
}

func ownedStorage(ctx context.Context, storages *store.StorageStore, caller types.Caller, id uint) (*model.StorageConfiguration, error) {
	c, err := storages.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.OwnerID != caller.UserID {
		return nil, apperr.Forbidden("storage belongs to another user", nil)
	}

	return c, nil
}

func validateCredentials(c model.S3Credentials) error {
	if err := rule.ValidateStruct(c); err != nil {
		return apperr.Validation(err.Error(), err)
	}

	return nil
}

func (s *StorageService) List(ctx context.Context, caller types.Caller) ([]model.StorageConfiguration, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	rows, err := s.storages.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i] = rows[i].Redacted()
	}

	return rows, nil
}

func (s *StorageService) Create(ctx context.Context, caller types.Caller, req types.StorageRequest) (*model.StorageConfiguration, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if err := validateCredentials(req.Configuration); err != nil {
		return nil, err
	}

	c := &model.StorageConfiguration{
		OwnerID:       caller.UserID,
		Name:          req.Name,
		Configuration: req.Configuration,
		CreatedAt:     s.clock(),
	}

	if err := s.storages.Create(ctx, c); err != nil {
		return nil, err
	}

	redacted := c.Redacted()

	return &redacted, nil
}

func (s *StorageService) Update(ctx context.Context, caller types.Caller, id uint, req types.StorageRequest) (*model.StorageConfiguration, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	c, err := ownedStorage(ctx, s.storages, caller, id)
	if err != nil {
		return nil, err
	}

	if err := validateCredentials(req.Configuration); err != nil {
		return nil, err
	}

	c.Name = req.Name
	c.Configuration = req.Configuration

	if err := s.storages.Update(ctx, c); err != nil {
		return nil, err
	}

	redacted := c.Redacted()

	return &redacted, nil
}
