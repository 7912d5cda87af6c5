package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/query"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
)

func newTag(name string) model.Tag {
	return model.Tag{ID: "t-" + name, Color: "#3b82f6"}
}

func TestEnsureByNamesReuses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.tags.EnsureByNames(ctx, owner, app, []string{"cat", "dog"}, newTag)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := f.tags.EnsureByNames(ctx, owner, app, []string{"dog", "bird"}, func(name string) model.Tag {
		return model.Tag{ID: "x-" + name, Color: "#22c55e"}
	})
	require.NoError(t, err)
	require.Len(t, second, 2)

	byName := map[string]string{}
	for _, tg := range second {
		byName[tg.Name] = tg.ID
	}

	assert.Equal(t, "t-dog", byName["dog"])
	assert.Equal(t, "x-bird", byName["bird"])

	// 其他用户可以拥有同名标签
	other, err := f.tags.EnsureByNames(ctx, "bob", app, []string{"cat"}, func(name string) model.Tag {
		return model.Tag{ID: "bob-" + name, Color: "#000000"}
	})
	require.NoError(t, err)
	assert.Equal(t, "bob-cat", other[0].ID)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.tags.Create(ctx, &model.Tag{ID: "1", OwnerID: owner, AppID: app, Name: "cat", Color: "#fff000"}))

	err := f.tags.Create(ctx, &model.Tag{ID: "2", OwnerID: owner, AppID: app, Name: "cat", Color: "#fff000"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "got %v", err)
}

func TestAttachIdempotentAndDetach(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)

	tags, err := f.tags.EnsureByNames(ctx, owner, app, []string{"cat", "dog"}, newTag)
	require.NoError(t, err)

	n, err := f.tags.Attach(ctx, "a", owner, []string{"t-cat", "t-dog", "t-cat"}, base)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = f.tags.Attach(ctx, "a", owner, []string{"t-cat"}, base)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.tags.Attach(ctx, "a", owner, []string{"t-ghost"}, base)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	got, err := f.tags.ListForFile(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, len(tags))

	n, err = f.tags.Detach(ctx, "a", []string{"t-cat"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.tags.Detach(ctx, "a", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err = f.tags.ListForFile(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTagFilteredListingExcludesTrashed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base.Add(time.Second))
	f.insert(t, "c", base.Add(2*time.Second))

	_, err := f.tags.EnsureByNames(ctx, owner, app, []string{"cat"}, newTag)
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		_, err = f.tags.Attach(ctx, id, owner, []string{"t-cat"}, base)
		require.NoError(t, err)
	}

	_, err = f.files.SoftDelete(ctx, []string{"b"}, owner, app, lifecycle.TrashMarks(base, lifecycle.DefaultRetention))
	require.NoError(t, err)

	page, err := f.files.ListPage(ctx, plan(t, query.Descriptor{TagID: "t-cat", State: lifecycle.Trashed}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page.Items))

	n, err := f.tags.CountFiles(ctx, "t-cat")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListWithCountsAndCategories(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)

	person := model.CategoryPerson
	_, err := f.tags.EnsureRoots(ctx, []model.Tag{
		{ID: "root-person", OwnerID: owner, AppID: app, Name: "人物", Color: "#3b82f6", CategoryType: &person},
	}, base)
	require.NoError(t, err)

	// 再次插入不会重复
	n, err := f.tags.EnsureRoots(ctx, []model.Tag{
		{ID: "root-person-2", OwnerID: owner, AppID: app, Name: "人物", Color: "#3b82f6", CategoryType: &person},
	}, base)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.tags.EnsureByNames(ctx, owner, app, []string{"cat"}, newTag)
	require.NoError(t, err)

	_, err = f.tags.Attach(ctx, "a", owner, []string{"root-person", "t-cat"}, base)
	require.NoError(t, err)
	_, err = f.tags.Attach(ctx, "b", owner, []string{"root-person"}, base)
	require.NoError(t, err)
	_, err = f.files.SoftDelete(ctx, []string{"b"}, owner, app, lifecycle.TrashMarks(base, lifecycle.DefaultRetention))
	require.NoError(t, err)

	cats, err := f.tags.ListCategories(ctx, owner, app)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "root-person", cats[0].ID)
	assert.EqualValues(t, 1, cats[0].FileCount)

	all, err := f.tags.ListWithCounts(ctx, owner, app)
	require.NoError(t, err)
	require.Len(t, all, 2)

	other, err := f.tags.ListWithCounts(ctx, owner, "other-app")
	require.NoError(t, err)

	for _, tg := range other {
		assert.Zero(t, tg.FileCount)
	}
}

func TestDeleteUnusedKeepsRootsAndUsed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)

	event := model.CategoryEvent
	_, err := f.tags.EnsureRoots(ctx, []model.Tag{
		{ID: "root-event", OwnerID: owner, AppID: app, Name: "事务", Color: "#f59e0b", CategoryType: &event},
	}, base)
	require.NoError(t, err)

	_, err = f.tags.EnsureByNames(ctx, owner, app, []string{"used", "unused"}, newTag)
	require.NoError(t, err)
	_, err = f.tags.Attach(ctx, "a", owner, []string{"t-used"}, base)
	require.NoError(t, err)

	n, err := f.tags.DeleteUnused(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.tags.Get(ctx, "t-unused", owner)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = f.tags.Get(ctx, "root-event", owner)
	require.NoError(t, err)
}

func TestDeleteTagRemovesAssociations(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)

	_, err := f.tags.EnsureByNames(ctx, owner, app, []string{"cat"}, newTag)
	require.NoError(t, err)
	_, err = f.tags.Attach(ctx, "a", owner, []string{"t-cat"}, base)
	require.NoError(t, err)

	require.NoError(t, f.tags.Delete(ctx, "t-cat", owner))

	n, err := f.tags.CountAssociations(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)

	err = f.tags.Delete(ctx, "t-cat", owner)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	err := f.tags.Transaction(ctx, func(tx *store.TagStore) error {
		if _, err := tx.EnsureByNames(ctx, owner, app, []string{"cat"}, newTag); err != nil {
			return err
		}

		return apperr.Internal("boom", nil)
	})
	require.Error(t, err)

	got, err := f.tags.FindByNames(ctx, owner, []string{"cat"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListWithCountsOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)

	_, err := f.tags.EnsureByNames(ctx, owner, app, []string{"ant", "cat", "dog", "bee"}, newTag)
	require.NoError(t, err)

	_, err = f.tags.Attach(ctx, "a", owner, []string{"t-cat", "t-dog", "t-bee"}, base)
	require.NoError(t, err)
	_, err = f.tags.Attach(ctx, "b", owner, []string{"t-cat"}, base)
	require.NoError(t, err)

	rows, err := f.tags.ListWithCounts(ctx, owner, app)
	require.NoError(t, err)

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}

	// 计数相同时按名称升序
	assert.Equal(t, []string{"cat", "bee", "dog", "ant"}, names)
	assert.EqualValues(t, 2, rows[0].FileCount)
	assert.Zero(t, rows[3].FileCount)
}

func TestTimestampsComeFromCaller(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)

	pinned := base.Add(36 * time.Hour)
	person := model.CategoryPerson

	_, err := f.tags.EnsureRoots(ctx, []model.Tag{
		{ID: "root-person", OwnerID: owner, AppID: app, Name: "人物", Color: "#3b82f6", CategoryType: &person},
	}, pinned)
	require.NoError(t, err)

	_, err = f.tags.Attach(ctx, "a", owner, []string{"root-person"}, pinned)
	require.NoError(t, err)

	var root model.Tag
	require.NoError(t, f.db.First(&root, "id = ?", "root-person").Error)
	assert.True(t, pinned.Equal(root.CreatedAt), "got %v", root.CreatedAt)

	var link model.FileTag
	require.NoError(t, f.db.First(&link, "file_id = ? AND tag_id = ?", "a", "root-person").Error)
	assert.True(t, pinned.Equal(link.CreatedAt), "got %v", link.CreatedAt)
}
