package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

func names(tags []model.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}

	return out
}

func TestAttachNormalizesAndDedupes(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	tags, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"Cat", "cat ", "DOG"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, names(tags))

	again, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"dog"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, tags[1].ID, again[0].ID)

	onFile, err := e.svc.Tags.ListForFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, names(onFile))

	for _, tag := range onFile {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, tag.Color)
	}
}

func TestAttachValidation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	_, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"ok", "   "})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Tags.Attach(ctx, alice, f.ID, []string{strings.Repeat("长", 21)})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Tags.Attach(ctx, bob, f.ID, []string{"cat"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	// 失败的请求不留下标签
	tags, err := e.svc.Tags.ListUserTags(ctx, alice, app.ID)
	require.NoError(t, err)

	for _, tag := range tags {
		assert.NotEqual(t, "ok", tag.Name)
	}
}

func TestDetach(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	tags, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"a", "b", "c"})
	require.NoError(t, err)

	require.NoError(t, e.svc.Tags.Detach(ctx, alice, f.ID, []string{tags[0].ID}))

	left, err := e.svc.Tags.ListForFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names(left))

	require.NoError(t, e.svc.Tags.Detach(ctx, alice, f.ID, nil))

	left, err = e.svc.Tags.ListForFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.True(t, apperr.Is(e.svc.Tags.Detach(ctx, bob, f.ID, nil), apperr.CodeNotFound))
}

func TestTagFilteredListingExcludesTrashed(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)
	a := e.save(t, alice, app.ID, "a.png")
	b := e.save(t, alice, app.ID, "b.png")

	tags, err := e.svc.Tags.Attach(ctx, alice, a.ID, []string{"cat"})
	require.NoError(t, err)
	_, err = e.svc.Tags.Attach(ctx, alice, b.ID, []string{"cat"})
	require.NoError(t, err)

	_, err = e.svc.Files.SoftDelete(ctx, alice, app.ID, []string{a.ID})
	require.NoError(t, err)

	page, err := e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{TagID: tags[0].ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ID)
}

func TestTagCountsAreCachedAndInvalidated(t *testing.T) {
	e := setup(t, withCache(t))
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	count := func(name string) int64 {
		tags, err := e.svc.Tags.ListUserTags(ctx, alice, app.ID)
		require.NoError(t, err)

		for _, tag := range tags {
			if tag.Name == name {
				return tag.FileCount
			}
		}

		return -1
	}

	assert.Equal(t, int64(-1), count("cat"))

	_, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"cat"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count("cat"))

	_, err = e.svc.Files.SoftDelete(ctx, alice, app.ID, []string{f.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count("cat"))
}

func TestTagCRUD(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	person := "person"
	parent, err := e.svc.Tags.Create(ctx, alice, types.CreateTagRequest{AppID: app.ID, Name: "Family", CategoryType: &person})
	require.NoError(t, err)
	assert.Equal(t, "family", parent.Name)

	_, err = e.svc.Tags.Create(ctx, alice, types.CreateTagRequest{AppID: app.ID, Name: "family"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	child, err := e.svc.Tags.Create(ctx, alice, types.CreateTagRequest{AppID: app.ID, Name: "mom", ParentID: &parent.ID, Color: "#123456"})
	require.NoError(t, err)
	assert.Equal(t, "#123456", child.Color)

	missing := "nope"
	_, err = e.svc.Tags.Create(ctx, alice, types.CreateTagRequest{AppID: app.ID, Name: "dad", ParentID: &missing})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	renamed := "Mother"
	updated, err := e.svc.Tags.Update(ctx, alice, child.ID, types.UpdateTagRequest{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "mother", updated.Name)

	_, err = e.svc.Tags.Update(ctx, alice, child.ID, types.UpdateTagRequest{ParentID: &child.ID})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Tags.Update(ctx, bob, child.ID, types.UpdateTagRequest{Name: &renamed})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	require.NoError(t, e.svc.Tags.Delete(ctx, alice, parent.ID))

	got, err := e.svc.Tags.Update(ctx, alice, child.ID, types.UpdateTagRequest{})
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestSeedDefaultsAndCleanup(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	roots, err := e.svc.Tags.ListByCategory(ctx, alice, app.ID)
	require.NoError(t, err)
	require.Len(t, roots, 3)

	n, err := e.svc.Tags.SeedDefaults(ctx, alice.UserID, app.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.svc.Tags.SeedAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f := e.save(t, alice, app.ID, "a.png")
	_, err = e.svc.Tags.Attach(ctx, alice, f.ID, []string{"used"})
	require.NoError(t, err)
	_, err = e.svc.Tags.Create(ctx, alice, types.CreateTagRequest{AppID: app.ID, Name: "unused"})
	require.NoError(t, err)

	deleted, err := e.svc.Tags.CleanupUnused(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	all, err := e.svc.Tags.ListUserTags(ctx, alice, app.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
