package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/query"
)

// FileStore 文件元数据存储.
type FileStore struct {
	db *gorm.DB
}

func NewFileStore(db *gorm.DB) *FileStore {
	return &FileStore{db: db}
}

// Insert 写入一个新文件，id 重复时返回 Conflict.
func (s *FileStore) Insert(ctx context.Context, f *model.File) error {
	f.CreatedAt = lifecycle.Normalize(f.CreatedAt)
	f.DeleteAt = nil
	f.DeletedAtExpiration = nil

	return translate("file", s.db.WithContext(ctx).Create(f).Error)
}

// FindByID 按 id 查找，owner 或 app 不匹配时与不存在一样返回 NotFound.
func (s *FileStore) FindByID(ctx context.Context, id, ownerID, appID string) (*model.File, error) {
	var f model.File

	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND app_id = ?", id, ownerID, appID).
		Take(&f).Error
	if err != nil {
		return nil, translate("file", err)
	}

	return &f, nil
}

// FindOwned 只按 owner 限定查找，用于以文件 id 为入口的接口.
func (s *FileStore) FindOwned(ctx context.Context, id, ownerID string) (*model.File, error) {
	var f model.File

	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Take(&f).Error
	if err != nil {
		return nil, translate("file", err)
	}

	return &f, nil
}

// ListPage 按计划查询一页.
func (s *FileStore) ListPage(ctx context.Context, p query.Plan) (Page[model.File], error) {
	var rows []model.File
	if err := p.Apply(s.db.WithContext(ctx)).Find(&rows).Error; err != nil {
		return Page[model.File]{}, translate("files", err)
	}

	items, next := p.Paginate(rows)
	if items == nil {
		items = []model.File{}
	}

	return Page[model.File]{Items: items, NextCursor: next}, nil
}

// SoftDelete 将正常文件移入回收站，已在回收站中的行不受影响. 返回实际迁移的 id.
func (s *FileStore) SoftDelete(ctx context.Context, ids []string, ownerID, appID string, marks lifecycle.Marks) ([]string, error) {
	return s.transition(ctx, ids, ownerID, appID, "delete_at IS NULL", map[string]any{
		"delete_at":             marks.DeleteAt,
		"deleted_at_expiration": marks.Expiration,
	})
}

// Restore 从回收站恢复，正常文件不受影响. 返回实际恢复的 id.
func (s *FileStore) Restore(ctx context.Context, ids []string, ownerID, appID string) ([]string, error) {
	return s.transition(ctx, ids, ownerID, appID, "delete_at IS NOT NULL", map[string]any{
		"delete_at":             nil,
		"deleted_at_expiration": nil,
	})
}

// transition 锁定处于源状态的行后更新，返回的 id 与更新的行一致.
func (s *FileStore) transition(ctx context.Context, ids []string, ownerID, appID, from string, set map[string]any) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var moved []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.File{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND app_id = ? AND id IN ?", ownerID, appID, ids).
			Where(from).
			Order("id ASC").
			Pluck("id", &moved).Error; err != nil {
			return err
		}

		if len(moved) == 0 {
			return nil
		}

		return tx.Model(&model.File{}).Where("id IN ?", moved).Where(from).Updates(set).Error
	})
	if err != nil {
		return nil, translate("files", err)
	}

	return moved, nil
}

// Purge 永久删除文件及其标签关联，不限状态，重复调用返回 0.
// 返回被删除的文件，供调用方清理对象存储.
func (s *FileStore) Purge(ctx context.Context, ids []string, ownerID, appID string) ([]model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var purged []model.File

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND app_id = ? AND id IN ?", ownerID, appID, ids).
			Find(&purged).Error; err != nil {
			return err
		}

		return purgeRows(tx, purged)
	})
	if err != nil {
		return nil, translate("files", err)
	}

	return purged, nil
}

// ListExpired 返回回收站中过期时间不晚于 before 的文件.
func (s *FileStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.File, error) {
	var rows []model.File

	err := s.db.WithContext(ctx).
		Where("delete_at IS NOT NULL AND deleted_at_expiration <= ?", lifecycle.Normalize(before)).
		Order("deleted_at_expiration ASC").Order("id ASC").
		Limit(limit).
		Find(&rows).Error

	return rows, translate("files", err)
}

// PurgeExpired 清理一批过期文件；行在读取后被恢复时不会被删除.
func (s *FileStore) PurgeExpired(ctx context.Context, before time.Time, limit int) ([]model.File, error) {
	before = lifecycle.Normalize(before)

	var purged []model.File

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("delete_at IS NOT NULL AND deleted_at_expiration <= ?", before).
			Order("deleted_at_expiration ASC").Order("id ASC").
			Limit(limit).
			Find(&purged).Error; err != nil {
			return err
		}

		if len(purged) == 0 {
			return nil
		}

		ids := fileIDs(purged)

		// 只删除仍处于过期状态的行
		var still []model.File
		if err := tx.Where("id IN ? AND delete_at IS NOT NULL AND deleted_at_expiration <= ?", ids, before).
			Find(&still).Error; err != nil {
			return err
		}

		purged = still

		return purgeRows(tx, purged)
	})
	if err != nil {
		return nil, translate("files", err)
	}

	return purged, nil
}

// CountActive 统计应用中正常文件数.
func (s *FileStore) CountActive(ctx context.Context, ownerID, appID string) (int64, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("owner_id = ? AND app_id = ? AND delete_at IS NULL", ownerID, appID).
		Count(&n).Error

	return n, translate("files", err)
}

func purgeRows(tx *gorm.DB, rows []model.File) error {
	if len(rows) == 0 {
		return nil
	}

	ids := fileIDs(rows)

	if err := tx.Where("file_id IN ?", ids).Delete(&model.FileTag{}).Error; err != nil {
		return err
	}

	return tx.Where("id IN ?", ids).Delete(&model.File{}).Error
}

func fileIDs(rows []model.File) []string {
	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}

	return ids
}
