package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/lifecycle"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/query"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/db"
	"github.com/RadiumAg/image-saas/pkg/internal/store"
)

const (
	owner = "alice"
	app   = "app-1"
)

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	files *store.FileStore
	tags  *store.TagStore
	apps  *store.AppStore
	db    *db.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	client, err := db.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = db.NewMigrator(client.DB).Migrate(context.Background())
	require.NoError(t, err)

	return &fixture{
		files: store.NewFileStore(client.DB),
		tags:  store.NewTagStore(client.DB),
		apps:  store.NewAppStore(client.DB),
		db:    client,
	}
}

func (f *fixture) insert(t *testing.T, id string, createdAt time.Time) {
	t.Helper()

	require.NoError(t, f.files.Insert(context.Background(), &model.File{
		ID: id, AppID: app, OwnerID: owner, Name: id + ".png", Path: "/" + id + ".png",
		URL: "https://cdn.example.com/" + id + ".png", ContentType: "image/png", CreatedAt: createdAt,
	}))
}

func plan(t *testing.T, d query.Descriptor) query.Plan {
	t.Helper()

	if d.OwnerID == "" {
		d.OwnerID = owner
	}

	if d.AppID == "" {
		d.AppID = app
	}

	p, err := query.Build(d, query.Limits{Default: 20, Max: 100})
	require.NoError(t, err)

	return p
}

func limit(n int) *int { return &n }

func ids(files []model.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}

	return out
}

func TestInsertConflictAndScope(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "f1", base)

	err := f.files.Insert(ctx, &model.File{ID: "f1", AppID: app, OwnerID: owner, Name: "x", Path: "/x", URL: "u", ContentType: "image/png"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "got %v", err)

	got, err := f.files.FindByID(ctx, "f1", owner, app)
	require.NoError(t, err)
	assert.Equal(t, base, got.CreatedAt.UTC())

	_, err = f.files.FindByID(ctx, "f1", "mallory", app)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = f.files.FindByID(ctx, "f1", owner, "other-app")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = f.files.FindByID(ctx, "missing", owner, app)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

// 时间为 T, T, T+1s，limit=2 时第一页是 T+1s 与 id 较大的 T，第二页只有剩下的 T.
func TestListPageTieBreak(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)
	f.insert(t, "c", base.Add(time.Second))

	page1, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(2)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(page1.Items))
	require.NotNil(t, page1.NextCursor)

	page2, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(2), Cursor: *page1.NextCursor}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page2.Items))
	assert.Nil(t, page2.NextCursor)
}

func TestListPageExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// 多组相同时间戳，间隔微秒级
	want := make([]string, 0, 23)
	for i := 0; i < 23; i++ {
		id := fmt.Sprintf("f%02d", i)
		f.insert(t, id, base.Add(time.Duration(i/4)*time.Microsecond*250))
		want = append(want, id)
	}

	for _, size := range []int{1, 2, 3, 5, 7, 23, 50} {
		var (
			got    []string
			cursor string
		)

		for pages := 0; pages < 30; pages++ {
			p, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(size), Cursor: cursor}))
			require.NoError(t, err)
			got = append(got, ids(p.Items)...)

			if p.NextCursor == nil {
				break
			}

			cursor = *p.NextCursor
		}

		require.Len(t, got, len(want), "size %d", size)

		seen := map[string]bool{}
		for _, id := range got {
			assert.False(t, seen[id], "duplicate %s with size %d", id, size)
			seen[id] = true
		}

		// (created_at desc, id desc)
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i-1], got[i], "order with size %d", size)
		}
	}
}

func TestListPageAscending(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)
	f.insert(t, "c", base.Add(time.Second))

	p1, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(2), SortOrder: "asc"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(p1.Items))
	require.NotNil(t, p1.NextCursor)

	p2, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(2), SortOrder: "asc", Cursor: *p1.NextCursor}))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(p2.Items))
}

func TestShortPageHasNoCursor(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base.Add(time.Second))

	p, err := f.files.ListPage(ctx, plan(t, query.Descriptor{Limit: limit(2)}))
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
	assert.Nil(t, p.NextCursor)

	empty, err := f.files.ListPage(ctx, plan(t, query.Descriptor{AppID: "empty"}))
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestDeleteTrashRestoreScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "F", base)
	f.insert(t, "G", base.Add(time.Second))

	now := base.Add(time.Hour)
	moved, err := f.files.SoftDelete(ctx, []string{"F", "ghost"}, owner, app, lifecycle.TrashMarks(now, lifecycle.DefaultRetention))
	require.NoError(t, err)
	assert.Equal(t, []string{"F"}, moved)

	// 重复删除是空操作
	moved, err = f.files.SoftDelete(ctx, []string{"F"}, owner, app, lifecycle.TrashMarks(now.Add(time.Minute), lifecycle.DefaultRetention))
	require.NoError(t, err)
	assert.Empty(t, moved)

	trash, err := f.files.ListPage(ctx, plan(t, query.Descriptor{State: lifecycle.Trashed}))
	require.NoError(t, err)
	assert.Equal(t, []string{"F"}, ids(trash.Items))

	active, err := f.files.ListPage(ctx, plan(t, query.Descriptor{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"G"}, ids(active.Items))

	moved, err = f.files.Restore(ctx, []string{"F", "G"}, owner, app)
	require.NoError(t, err)
	assert.Equal(t, []string{"F"}, moved)

	// 恢复是幂等的
	moved, err = f.files.Restore(ctx, []string{"F"}, owner, app)
	require.NoError(t, err)
	assert.Empty(t, moved)

	trash, err = f.files.ListPage(ctx, plan(t, query.Descriptor{State: lifecycle.Trashed}))
	require.NoError(t, err)
	assert.Empty(t, trash.Items)

	active, err = f.files.ListPage(ctx, plan(t, query.Descriptor{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"G", "F"}, ids(active.Items))

	got, err := f.files.FindByID(ctx, "F", owner, app)
	require.NoError(t, err)
	assert.Nil(t, got.DeleteAt)
	assert.Nil(t, got.DeletedAtExpiration)
}

func TestExpirationInvariant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)

	now := base.Add(90 * time.Minute).Add(123456789 * time.Nanosecond)
	_, err := f.files.SoftDelete(ctx, []string{"a", "b"}, owner, app, lifecycle.TrashMarks(now, lifecycle.DefaultRetention))
	require.NoError(t, err)

	var rows []model.File
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 2)

	for _, r := range rows {
		require.NotNil(t, r.DeleteAt)
		require.NotNil(t, r.DeletedAtExpiration)
		assert.Equal(t, 7*24*time.Hour, r.DeletedAtExpiration.Sub(*r.DeleteAt))
		assert.True(t, lifecycle.Normalize(now).Equal(*r.DeleteAt))
	}
}

func TestMutationsAreScoped(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)

	marks := lifecycle.TrashMarks(base, lifecycle.DefaultRetention)

	moved, err := f.files.SoftDelete(ctx, []string{"a", "ghost"}, "mallory", app, marks)
	require.NoError(t, err)
	assert.Empty(t, moved)

	moved, err = f.files.SoftDelete(ctx, []string{"a"}, owner, "other", marks)
	require.NoError(t, err)
	assert.Empty(t, moved)

	purged, err := f.files.Purge(ctx, []string{"a"}, "mallory", app)
	require.NoError(t, err)
	assert.Empty(t, purged)

	_, err = f.files.FindByID(ctx, "a", owner, app)
	require.NoError(t, err)
}

func TestPurgeRemovesAssociations(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "a", base)
	f.insert(t, "b", base)

	tags, err := f.tags.EnsureByNames(ctx, owner, app, []string{"cat", "dog"}, newTag)
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		_, err = f.tags.Attach(ctx, id, owner, []string{tags[0].ID, tags[1].ID}, base)
		require.NoError(t, err)
	}

	purged, err := f.files.Purge(ctx, []string{"a"}, owner, app)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(purged))

	var orphans int64
	require.NoError(t, f.db.Model(&model.FileTag{}).Where("file_id = ?", "a").Count(&orphans).Error)
	assert.Zero(t, orphans)

	remaining, err := f.tags.CountAssociations(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, remaining)

	// 幂等
	purged, err = f.files.Purge(ctx, []string{"a"}, owner, app)
	require.NoError(t, err)
	assert.Empty(t, purged)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.insert(t, "old", base)
	f.insert(t, "new", base)
	f.insert(t, "live", base)

	_, err := f.files.SoftDelete(ctx, []string{"old"}, owner, app, lifecycle.TrashMarks(base, lifecycle.DefaultRetention))
	require.NoError(t, err)
	_, err = f.files.SoftDelete(ctx, []string{"new"}, owner, app, lifecycle.TrashMarks(base.Add(48*time.Hour), lifecycle.DefaultRetention))
	require.NoError(t, err)

	now := base.Add(8 * 24 * time.Hour)

	expired, err := f.files.ListExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(expired))

	purged, err := f.files.PurgeExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(purged))

	n, err := f.files.CountActive(ctx, owner, app)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.files.FindByID(ctx, "new", owner, app)
	require.NoError(t, err)
}
