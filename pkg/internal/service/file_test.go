package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/queue"
)

func TestDeleteTrashRestore(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	a := e.save(t, alice, app.ID, "a.png")
	b := e.save(t, alice, app.ID, "b.png")

	n, err := e.svc.Files.SoftDelete(ctx, alice, app.ID, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, b.ID, active.Items[0].ID)
	assert.Nil(t, active.NextCursor)

	trash, err := e.svc.Files.ListTrashedPage(ctx, alice, app.ID, types.ListTrashQuery{})
	require.NoError(t, err)
	require.Len(t, trash.Items, 1)

	got := trash.Items[0]
	require.NotNil(t, got.DeleteAt)
	require.NotNil(t, got.DeletedAtExpiration)
	assert.True(t, got.DeleteAt.Add(7*24*time.Hour).Equal(*got.DeletedAtExpiration))

	// 再次删除不生效
	n, err = e.svc.Files.SoftDelete(ctx, alice, app.ID, []string{a.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.svc.Files.Restore(ctx, alice, app.ID, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.svc.Files.Restore(ctx, alice, app.ID, []string{a.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err = e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	assert.Len(t, active.Items, 2)

	assert.Len(t, e.pub.topic(queue.TopicFileSaved), 2)

	// 事件只携带真正发生迁移的文件
	trashed := e.pub.topic(queue.TopicFileTrashed)
	require.Len(t, trashed, 1)
	tm, err := queue.ParseWatermillMessage[queue.FilesTrashedPayload](trashed[0])
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, tm.Payload.IDs)
	assert.Equal(t, int64(1), tm.Payload.Count)

	restored := e.pub.topic(queue.TopicFileRestored)
	require.Len(t, restored, 1)
	rm, err := queue.ParseWatermillMessage[queue.FilesRestoredPayload](restored[0])
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, rm.Payload.IDs)
}

func TestMutationsAreOwnerScoped(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	n, err := e.svc.Files.SoftDelete(ctx, bob, app.ID, []string{f.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.svc.Files.Purge(ctx, bob, app.ID, []string{f.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.svc.Files.Get(ctx, bob, f.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	page, err := e.svc.Files.ListFilesPage(ctx, bob, app.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = e.svc.Files.ListFilesPage(ctx, types.Caller{}, app.ID, types.ListFilesQuery{})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestListValidation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	zero := 0
	_, err := e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{Limit: &zero})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{Cursor: "%%%"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Files.ListFilesPage(ctx, alice, app.ID, types.ListFilesQuery{OrderField: "name"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestPaginationWalksEveryFileOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	want := map[string]bool{}
	for _, n := range []string{"1.png", "2.png", "3.png", "4.png", "5.png"} {
		want[e.save(t, alice, app.ID, n).ID] = true
	}

	limit := 2
	seen := map[string]bool{}
	q := types.ListFilesQuery{Limit: &limit}

	for range 10 {
		page, err := e.svc.Files.ListFilesPage(ctx, alice, app.ID, q)
		require.NoError(t, err)

		for _, f := range page.Items {
			assert.False(t, seen[f.ID], "duplicate %s", f.ID)
			seen[f.ID] = true
		}

		if page.NextCursor == nil {
			break
		}

		q.Cursor = *page.NextCursor
	}

	assert.Equal(t, want, seen)
}

func TestPurgeRemovesAssociationsAndBlobs(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, true)
	f := e.save(t, alice, app.ID, "a.png")

	_, err := e.svc.Tags.Attach(ctx, alice, f.ID, []string{"cat"})
	require.NoError(t, err)

	n, err := e.svc.Files.Purge(ctx, alice, app.ID, []string{f.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.svc.Files.Purge(ctx, alice, app.ID, []string{f.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	var links int64
	require.NoError(t, e.db.DB.Table("files_tags").Where("file_id = ?", f.ID).Count(&links).Error)
	assert.Zero(t, links)

	msgs := e.pub.topic(queue.TopicFilePurged)
	require.Len(t, msgs, 1)

	env, err := queue.ParseFilesPurged(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, queue.PurgeReasonManual, env.Payload.Reason)

	require.NoError(t, e.svc.Files.HandlePurged(msgs[0]))
	assert.Equal(t, []string{"2025-06-01/a.png"}, e.presigner.removed)
}

func TestSweepExpired(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	app := e.app(t, alice, false)

	var ids []string
	for _, n := range []string{"1.png", "2.png", "3.png"} {
		ids = append(ids, e.save(t, alice, app.ID, n).ID)
	}

	keep := e.save(t, alice, app.ID, "keep.png")

	_, err := e.svc.Files.SoftDelete(ctx, alice, app.ID, ids)
	require.NoError(t, err)

	res, err := e.svc.Files.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Purged)

	e.clock.advance(7 * 24 * time.Hour)

	_, err = e.svc.Files.SoftDelete(ctx, alice, app.ID, []string{keep.ID})
	require.NoError(t, err)

	res, err = e.svc.Files.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Purged)
	assert.Equal(t, 2, res.Batches)

	trash, err := e.svc.Files.ListTrashedPage(ctx, alice, app.ID, types.ListTrashQuery{})
	require.NoError(t, err)
	require.Len(t, trash.Items, 1)
	assert.Equal(t, keep.ID, trash.Items[0].ID)

	msgs := e.pub.topic(queue.TopicFilePurged)
	require.Len(t, msgs, 2)

	env, err := queue.ParseFilesPurged(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, queue.PurgeReasonExpired, env.Payload.Reason)
}

func TestSaveAndPresign(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	bare := e.app(t, alice, false)
	app := e.app(t, alice, true)

	_, err := e.svc.Files.CreatePresignedURL(ctx, alice, bare.ID, types.PresignRequest{Filename: "a.png", ContentType: "image/png"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = e.svc.Files.CreatePresignedURL(ctx, bob, app.ID, types.PresignRequest{Filename: "a.png", ContentType: "image/png"})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = e.svc.Files.CreatePresignedURL(ctx, alice, "missing", types.PresignRequest{Filename: "a.png", ContentType: "image/png"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	out, err := e.svc.Files.CreatePresignedURL(ctx, alice, app.ID, types.PresignRequest{Filename: "a.png", ContentType: "image/png", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, "PUT", out.Method)
	assert.Regexp(t, `^2025-06-01/a\.png-[0-9a-f-]{36}$`, out.Key)
	require.Len(t, e.presigner.puts, 1)
	assert.Equal(t, 120*time.Second, e.presigner.puts[0].Expiry)

	f := e.save(t, alice, app.ID, "b.png")
	assert.Equal(t, "/photos/2025-06-01/b.png", f.Path)
	assert.Equal(t, "image/png", f.ContentType)

	env, err := queue.ParseFileSaved(e.pub.topic(queue.TopicFileSaved)[0])
	require.NoError(t, err)
	assert.True(t, env.Payload.Recognize)

	_, err = e.svc.Files.Save(ctx, bob, app.ID, types.SaveFileRequest{Name: "x", URL: "https://x/y", Type: "image/png"})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}
