package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
)

// TagStore 标签与文件标签关联存储.
type TagStore struct {
	db *gorm.DB
}

func NewTagStore(db *gorm.DB) *TagStore {
	return &TagStore{db: db}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚.
func (s *TagStore) Transaction(ctx context.Context, fn func(tx *TagStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TagStore{db: tx})
	})
}

// Get 按 id 查找调用方的标签.
func (s *TagStore) Get(ctx context.Context, id, ownerID string) (*model.Tag, error) {
	var t model.Tag
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Take(&t).Error; err != nil {
		return nil, translate("tag", err)
	}

	return &t, nil
}

// Create 创建标签，同名时返回 Conflict.
func (s *TagStore) Create(ctx context.Context, t *model.Tag) error {
	return translate("tag", s.db.WithContext(ctx).Create(t).Error)
}

// TagUpdate 可更新字段，nil 表示不修改.
type TagUpdate struct {
	Name         *string
	Color        *string
	CategoryType **model.CategoryType
	ParentID     **string
	Sort         *int
}

// Update 更新标签字段.
func (s *TagStore) Update(ctx context.Context, id, ownerID string, u TagUpdate) (*model.Tag, error) {
	values := map[string]any{}

	if u.Name != nil {
		values["name"] = *u.Name
	}

	if u.Color != nil {
		values["color"] = *u.Color
	}

	if u.CategoryType != nil {
		values["category_type"] = *u.CategoryType
	}

	if u.ParentID != nil {
		values["parent_id"] = *u.ParentID
	}

	if u.Sort != nil {
		values["sort"] = *u.Sort
	}

	if len(values) > 0 {
		tx := s.db.WithContext(ctx).Model(&model.Tag{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(values)
		if tx.Error != nil {
			return nil, translate("tag", tx.Error)
		}
	}

	return s.Get(ctx, id, ownerID)
}

// Delete 先删除关联再删除标签.
func (s *TagStore) Delete(ctx context.Context, id, ownerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Tag
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).Take(&t).Error; err != nil {
			return translate("tag", err)
		}

		if err := tx.Where("tag_id = ?", id).Delete(&model.FileTag{}).Error; err != nil {
			return err
		}

		// 子标签变为根标签
		if err := tx.Model(&model.Tag{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&t).Error
	})
}

// FindByNames 按名称查找调用方的标签.
func (s *TagStore) FindByNames(ctx context.Context, ownerID string, names []string) ([]model.Tag, error) {
	if len(names) == 0 {
		return []model.Tag{}, nil
	}

	var tags []model.Tag

	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND name IN ?", ownerID, names).
		Order("name ASC").
		Find(&tags).Error

	return tags, translate("tags", err)
}

// EnsureByNames 创建缺失的标签并返回全部标签，已存在的名称直接复用.
// 并发创建同名标签时依赖 (owner_id, name) 唯一索引，冲突行被忽略后重新查询.
func (s *TagStore) EnsureByNames(ctx context.Context, ownerID, appID string, names []string, newTag func(name string) model.Tag) ([]model.Tag, error) {
	existing, err := s.FindByNames(ctx, ownerID, names)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t.Name] = struct{}{}
	}

	missing := make([]model.Tag, 0, len(names))

	for _, n := range names {
		if _, ok := have[n]; ok {
			continue
		}

		t := newTag(n)
		t.OwnerID = ownerID
		t.AppID = appID
		t.Name = n
		missing = append(missing, t)
		have[n] = struct{}{}
	}

	if len(missing) == 0 {
		return existing, nil
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error; err != nil {
		return nil, translate("tags", err)
	}

	return s.FindByNames(ctx, ownerID, names)
}

// Attach 关联文件与标签，重复关联不报错；标签必须属于调用方.
func (s *TagStore) Attach(ctx context.Context, fileID, ownerID string, tagIDs []string, now time.Time) (int64, error) {
	tagIDs = dedupe(tagIDs)
	if len(tagIDs) == 0 {
		return 0, nil
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Tag{}).
		Where("owner_id = ? AND id IN ?", ownerID, tagIDs).
		Count(&n).Error; err != nil {
		return 0, translate("tags", err)
	}

	if int(n) != len(tagIDs) {
		return 0, apperr.NotFound("tag", nil)
	}

	now = lifecycle.Normalize(now)

	rows := make([]model.FileTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, model.FileTag{FileID: fileID, TagID: id, CreatedAt: now})
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)

	return tx.RowsAffected, translate("file tags", tx.Error)
}

// Detach 解除关联，tagIDs 为空时解除文件的全部标签.
func (s *TagStore) Detach(ctx context.Context, fileID string, tagIDs []string) (int64, error) {
	q := s.db.WithContext(ctx).Where("file_id = ?", fileID)
	if len(tagIDs) > 0 {
		q = q.Where("tag_id IN ?", tagIDs)
	}

	tx := q.Delete(&model.FileTag{})

	return tx.RowsAffected, translate("file tags", tx.Error)
}

// ListForFile 返回文件的全部标签.
func (s *TagStore) ListForFile(ctx context.Context, fileID string) ([]model.Tag, error) {
	tags := []model.Tag{}

	err := s.db.WithContext(ctx).
		Joins("INNER JOIN files_tags ON files_tags.tag_id = tags.id").
		Where("files_tags.file_id = ?", fileID).
		Order("tags.name ASC").
		Find(&tags).Error

	return tags, translate("tags", err)
}

// CountAssociations 文件的关联数.
func (s *TagStore) CountAssociations(ctx context.Context, fileID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.FileTag{}).Where("file_id = ?", fileID).Count(&n).Error

	return n, translate("file tags", err)
}

// CountFiles 统计标签关联的正常文件数，回收站中的文件不计入.
func (s *TagStore) CountFiles(ctx context.Context, tagID string) (int64, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.FileTag{}).
		Joins("INNER JOIN files ON files.id = files_tags.file_id").
		Where("files_tags.tag_id = ? AND files.delete_at IS NULL", tagID).
		Count(&n).Error

	return n, translate("file tags", err)
}

// withCounts 标签及其在指定应用中的正常文件数.
func (s *TagStore) withCounts(ctx context.Context, appID string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Tag{}).
		Select("tags.*, COUNT(files.id) AS file_count").
		Joins("LEFT JOIN files_tags ON files_tags.tag_id = tags.id").
		Joins("LEFT JOIN files ON files.id = files_tags.file_id AND files.delete_at IS NULL AND files.app_id = ?", appID).
		Group("tags.id")
}

// ListWithCounts 调用方的全部标签及计数，按关联文件数降序、名称升序.
func (s *TagStore) ListWithCounts(ctx context.Context, ownerID, appID string) ([]model.TagWithCount, error) {
	rows := []model.TagWithCount{}
	err := s.withCounts(ctx, appID).
		Where("tags.owner_id = ?", ownerID).
		Order("file_count DESC").Order("tags.name ASC").
		Scan(&rows).Error

	return rows, translate("tags", err)
}

// ListCategories 分类根标签（有分类且无父标签）及计数.
func (s *TagStore) ListCategories(ctx context.Context, ownerID, appID string) ([]model.TagWithCount, error) {
	rows := []model.TagWithCount{}

	err := s.withCounts(ctx, appID).
		Where("tags.owner_id = ? AND tags.category_type IS NOT NULL AND tags.parent_id IS NULL", ownerID).
		Order("tags.sort ASC").Order("tags.name ASC").
		Scan(&rows).Error

	return rows, translate("tags", err)
}

// DeleteUnused 删除没有任何关联的普通标签，分类根标签与仍有子标签的标签保留.
func (s *TagStore) DeleteUnused(ctx context.Context, ownerID string) (int64, error) {
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used := tx.Model(&model.FileTag{}).Select("1").Where("files_tags.tag_id = tags.id")
		children := tx.Table("tags AS child").Select("1").Where("child.parent_id = tags.id")

		var ids []string
		if err := tx.Model(&model.Tag{}).
			Where("owner_id = ? AND category_type IS NULL AND NOT EXISTS (?) AND NOT EXISTS (?)", ownerID, used, children).
			Pluck("id", &ids).Error; err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}

		res := tx.Where("owner_id = ? AND id IN ?", ownerID, ids).Delete(&model.Tag{})
		deleted = res.RowsAffected

		return res.Error
	})

	return deleted, translate("tags", err)
}

// EnsureRoots 插入缺失的分类根标签，返回新建数量. 未设置创建时间的使用 now.
func (s *TagStore) EnsureRoots(ctx context.Context, roots []model.Tag, now time.Time) (int64, error) {
	if len(roots) == 0 {
		return 0, nil
	}

	for i := range roots {
		if roots[i].CreatedAt.IsZero() {
			roots[i].CreatedAt = lifecycle.Normalize(now)
		}
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&roots)

	return tx.RowsAffected, translate("tags", tx.Error)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
