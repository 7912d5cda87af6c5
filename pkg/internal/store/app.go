package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/RadiumAg/image-saas/pkg/internal/model"
)

// AppStore 应用存储.
type AppStore struct {
	db *gorm.DB
}

func NewAppStore(db *gorm.DB) *AppStore {
	return &AppStore{db: db}
}

func (s *AppStore) Create(ctx context.Context, a *model.App) error {
	return translate("app", s.db.WithContext(ctx).Create(a).Error)
}

// Get 按 id 查找应用（不限 owner），调用方据此区分 NotFound 与 Forbidden.
func (s *AppStore) Get(ctx context.Context, id string) (*model.App, error) {
	var a model.App
	if err := s.db.WithContext(ctx).Preload("Storage").Where("id = ? AND delete_at IS NULL", id).Take(&a).Error; err != nil {
		return nil, translate("app", err)
	}

	return &a, nil
}

func (s *AppStore) ListByOwner(ctx context.Context, ownerID string) ([]model.App, error) {
	apps := []model.App{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND delete_at IS NULL", ownerID).
		Order("created_at DESC").
		Find(&apps).Error

	return apps, translate("apps", err)
}

// ListOwners 所有拥有应用的用户及其第一个应用，用于初始化默认标签.
func (s *AppStore) ListOwners(ctx context.Context) ([]model.App, error) {
	var apps []model.App
	err := s.db.WithContext(ctx).
		Where("delete_at IS NULL").
		Order("owner_id ASC").Order("created_at ASC").
		Find(&apps).Error

	return apps, translate("apps", err)
}

func (s *AppStore) BindStorage(ctx context.Context, id string, storageID uint) error {
	return translate("app", s.db.WithContext(ctx).Model(&model.App{}).
		Where("id = ?", id).
		Update("storage_id", storageID).Error)
}

// StorageStore 存储配置存储.
type StorageStore struct {
	db *gorm.DB
}

func NewStorageStore(db *gorm.DB) *StorageStore {
	return &StorageStore{db: db}
}

func (s *StorageStore) Create(ctx context.Context, c *model.StorageConfiguration) error {
	return translate("storage", s.db.WithContext(ctx).Create(c).Error)
}

// Get 按 id 查找（不限 owner）.
func (s *StorageStore) Get(ctx context.Context, id uint) (*model.StorageConfiguration, error) {
	var c model.StorageConfiguration
	if err := s.db.WithContext(ctx).Where("id = ? AND delete_at IS NULL", id).Take(&c).Error; err != nil {
		return nil, translate("storage", err)
	}

	return &c, nil
}

func (s *StorageStore) ListByOwner(ctx context.Context, ownerID string) ([]model.StorageConfiguration, error) {
	out := []model.StorageConfiguration{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND delete_at IS NULL", ownerID).
		Order("created_at DESC").
		Find(&out).Error

	return out, translate("storages", err)
}

func (s *StorageStore) Update(ctx context.Context, c *model.StorageConfiguration) error {
	return translate("storage", s.db.WithContext(ctx).Model(c).
		Select("name", "configuration").
		Updates(c).Error)
}
