package service

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/cache"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
	"github.com/RadiumAg/image-saas/pkg/internal/ids"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/rule"
)

// palette 自动创建标签时随机选用的颜色.
var palette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308", "#84cc16", "#22c55e",
	"#10b981", "#14b8a6", "#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899", "#f43f5e",
}

// defaultRoots 每个用户的分类根标签.
var defaultRoots = []struct {
	name     string
	category model.CategoryType
	color    string
}{
	{"人物", model.CategoryPerson, "#3b82f6"},
	{"地点", model.CategoryLocation, "#22c55e"},
	{"事务", model.CategoryEvent, "#f59e0b"},
}

// TagService 标签管理与文件标签关联.
type TagService struct {
	tags     *store.TagStore
	files    *store.FileStore
	apps     *store.AppStore
	cache    *cache.Cache
	cacheTTL time.Duration
	clock    lifecycle.Clock
}

// NormalizeTagName 去掉首尾空白并转为小写.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validTagName(name string) bool {
	n := utf8.RuneCountInString(name)

	return n >= 1 && n <= rule.TagNameMaxRunes
}

// normalizeNames 规范化并去重；strict 为 true 时非法名称返回 ValidationError，否则静默丢弃.
func normalizeNames(names []string, strict bool) ([]string, error) {
	out := make([]string, 0, len(names))

	for _, raw := range names {
		n := NormalizeTagName(raw)
		if !validTagName(n) {
			if strict {
				return nil, apperr.Validation("tag name must be 1 to 20 characters: "+raw, nil)
			}

			continue
		}

		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}

	return out, nil
}

func randomColor() string {
	return palette[rand.IntN(len(palette))]
}

func (s *TagService) newTag(string) model.Tag {
	now := s.clock()

	return model.Tag{ID: ids.NewAt(now), Color: randomColor(), CreatedAt: now}
}

func (s *TagService) cacheKey(owner string, parts ...string) string {
	return cache.Key(append([]string{"tags", owner}, parts...)...)
}

// invalidate 清除用户的标签计数缓存.
func (s *TagService) invalidate(ctx context.Context, owner string) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	if err := s.cache.DeletePrefix(ctx, s.cacheKey(owner)+":"); err != nil {
		ctxPkg.Logger(ctx).Warn().Err(err).Str("owner", owner).Msg("invalidate tag cache failed")
	}
}

// Attach 为文件添加标签，同名标签复用，缺失的在同一事务中创建.
func (s *TagService) Attach(ctx context.Context, caller types.Caller, fileID string, names []string) ([]model.Tag, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	normalized, err := normalizeNames(names, true)
	if err != nil {
		return nil, err
	}

	if len(normalized) == 0 {
		return nil, apperr.Validation("tagNames must not be empty", nil)
	}

	file, err := s.files.FindOwned(ctx, fileID, caller.UserID)
	if err != nil {
		return nil, err
	}

	return s.attach(ctx, file, normalized)
}

// attachLabels 关联识别结果，非法标签静默丢弃.
func (s *TagService) attachLabels(ctx context.Context, file *model.File, labels []string) ([]model.Tag, error) {
	normalized, _ := normalizeNames(labels, false)
	if len(normalized) == 0 {
		return []model.Tag{}, nil
	}

	return s.attach(ctx, file, normalized)
}

func (s *TagService) attach(ctx context.Context, file *model.File, names []string) ([]model.Tag, error) {
	var tags []model.Tag

	err := s.tags.Transaction(ctx, func(tx *store.TagStore) error {
		var err error

		tags, err = tx.EnsureByNames(ctx, file.OwnerID, file.AppID, names, s.newTag)
		if err != nil {
			return err
		}

		tagIDs := make([]string, 0, len(tags))
		for _, t := range tags {
			tagIDs = append(tagIDs, t.ID)
		}

		_, err = tx.Attach(ctx, file.ID, file.OwnerID, tagIDs, s.clock())

		return err
	})
	if err != nil {
		return nil, apperr.Internal("failed to attach tags", err)
	}

	s.invalidate(ctx, file.OwnerID)

	return tags, nil
}

// Detach 解除文件标签，tagIDs 为空时解除全部.
func (s *TagService) Detach(ctx context.Context, caller types.Caller, fileID string, tagIDs []string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	file, err := s.files.FindOwned(ctx, fileID, caller.UserID)
	if err != nil {
		return err
	}

	if _, err := s.tags.Detach(ctx, file.ID, tagIDs); err != nil {
		return err
	}

	s.invalidate(ctx, caller.UserID)

	return nil
}

func (s *TagService) ListForFile(ctx context.Context, caller types.Caller, fileID string) ([]model.Tag, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	file, err := s.files.FindOwned(ctx, fileID, caller.UserID)
	if err != nil {
		return nil, err
	}

	return s.tags.ListForFile(ctx, file.ID)
}

func (s *TagService) cached(ctx context.Context, key string, load func() ([]model.TagWithCount, error)) ([]model.TagWithCount, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return load()
	}

	return cache.GetOrSet(ctx, s.cache, key, load, s.cacheTTL)
}

// ListUserTags 调用方的全部标签，计数只包含应用中的正常文件.
func (s *TagService) ListUserTags(ctx context.Context, caller types.Caller, appID string) ([]model.TagWithCount, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	return s.cached(ctx, s.cacheKey(caller.UserID, appID, "all"), func() ([]model.TagWithCount, error) {
		return s.tags.ListWithCounts(ctx, caller.UserID, appID)
	})
}

// ListByCategory 分类根标签及计数.
func (s *TagService) ListByCategory(ctx context.Context, caller types.Caller, appID string) ([]model.TagWithCount, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	return s.cached(ctx, s.cacheKey(caller.UserID, appID, "categories"), func() ([]model.TagWithCount, error) {
		return s.tags.ListCategories(ctx, caller.UserID, appID)
	})
}

func parseCategory(s *string) (*model.CategoryType, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	c := model.CategoryType(*s)
	if !c.Valid() {
		return nil, apperr.Validation("unknown category type: "+*s, nil)
	}

	return &c, nil
}

// checkParent 父标签必须属于调用方且不能是自身.
func (s *TagService) checkParent(ctx context.Context, owner, self string, parentID *string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}

	if *parentID == self {
		return apperr.Validation("tag cannot be its own parent", nil)
	}

	_, err := s.tags.Get(ctx, *parentID, owner)

	return err
}

// Create 显式创建标签，同名时返回 Conflict.
func (s *TagService) Create(ctx context.Context, caller types.Caller, req types.CreateTagRequest) (*model.Tag, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	name := NormalizeTagName(req.Name)
	if !validTagName(name) {
		return nil, apperr.Validation("tag name must be 1 to 20 characters", nil)
	}

	category, err := parseCategory(req.CategoryType)
	if err != nil {
		return nil, err
	}

	if err := s.checkParent(ctx, caller.UserID, "", req.ParentID); err != nil {
		return nil, err
	}

	t := s.newTag(name)
	t.OwnerID = caller.UserID
	t.AppID = req.AppID
	t.Name = name
	t.CategoryType = category
	t.Sort = req.Sort

	if req.ParentID != nil && *req.ParentID != "" {
		t.ParentID = req.ParentID
	}

	if req.Color != "" {
		t.Color = req.Color
	}

	if err := s.tags.Create(ctx, &t); err != nil {
		return nil, err
	}

	s.invalidate(ctx, caller.UserID)

	return &t, nil
}

// Update 修改标签，重名时返回 Conflict.
func (s *TagService) Update(ctx context.Context, caller types.Caller, id string, req types.UpdateTagRequest) (*model.Tag, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if _, err := s.tags.Get(ctx, id, caller.UserID); err != nil {
		return nil, err
	}

	var u store.TagUpdate

	if req.Name != nil {
		name := NormalizeTagName(*req.Name)
		if !validTagName(name) {
			return nil, apperr.Validation("tag name must be 1 to 20 characters", nil)
		}

		u.Name = &name
	}

	u.Color = req.Color
	u.Sort = req.Sort

	if req.CategoryType != nil {
		category, err := parseCategory(req.CategoryType)
		if err != nil {
			return nil, err
		}

		u.CategoryType = &category
	}

	if req.ParentID != nil {
		if err := s.checkParent(ctx, caller.UserID, id, req.ParentID); err != nil {
			return nil, err
		}

		parent := req.ParentID
		if *parent == "" {
			parent = nil
		}

		u.ParentID = &parent
	}

	t, err := s.tags.Update(ctx, id, caller.UserID, u)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, caller.UserID)

	return t, nil
}

// Delete 删除标签及其全部关联.
func (s *TagService) Delete(ctx context.Context, caller types.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	if err := s.tags.Delete(ctx, id, caller.UserID); err != nil {
		return err
	}

	s.invalidate(ctx, caller.UserID)

	return nil
}

// CleanupUnused 删除调用方没有任何关联的普通标签.
func (s *TagService) CleanupUnused(ctx context.Context, caller types.Caller) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	n, err := s.tags.DeleteUnused(ctx, caller.UserID)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.invalidate(ctx, caller.UserID)
	}

	return n, nil
}

// SeedDefaults 为用户补齐分类根标签，已存在的保持不变.
func (s *TagService) SeedDefaults(ctx context.Context, ownerID, appID string) (int64, error) {
	roots := make([]model.Tag, 0, len(defaultRoots))

	for i, r := range defaultRoots {
		category := r.category
		t := s.newTag(r.name)
		t.OwnerID = ownerID
		t.AppID = appID
		t.Name = r.name
		t.Color = r.color
		t.CategoryType = &category
		t.Sort = i
		roots = append(roots, t)
	}

	n, err := s.tags.EnsureRoots(ctx, roots, s.clock())
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.invalidate(ctx, ownerID)
	}

	return n, nil
}

// SeedAll 为每个拥有应用的用户补齐分类根标签，挂在其最早的应用下.
func (s *TagService) SeedAll(ctx context.Context) (int64, error) {
	apps, err := s.apps.ListOwners(ctx)
	if err != nil {
		return 0, err
	}

	var total int64

	seen := map[string]struct{}{}

	for _, a := range apps {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}

		seen[a.OwnerID] = struct{}{}

		n, err := s.SeedDefaults(ctx, a.OwnerID, a.ID)
		if err != nil {
			return total, err
		}

		total += n
	}

	return total, nil
}
