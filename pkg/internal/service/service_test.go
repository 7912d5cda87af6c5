package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
	"github.com/RadiumAg/image-saas/pkg/internal/service"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/db"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/kv"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
)

var (
	alice = types.Caller{UserID: "alice"}
	bob   = types.Caller{UserID: "bob"}
	start = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
)

// clock 可推进的测试时钟.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

// recorder 记录发布的消息.
type recorder struct {
	mu   sync.Mutex
	msgs map[string][]*message.Message
}

func (r *recorder) Publish(topic string, msgs ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.msgs == nil {
		r.msgs = map[string][]*message.Message{}
	}

	r.msgs[topic] = append(r.msgs[topic], msgs...)

	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) topic(name string) []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.msgs[name]
}

// fakePresigner 记录调用.
type fakePresigner struct {
	mu      sync.Mutex
	puts    []s3.PutObjectInput
	removed []string
}

func (p *fakePresigner) PresignPut(_ context.Context, creds model.S3Credentials, in s3.PutObjectInput) (s3.PresignedUpload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.puts = append(p.puts, in)

	return s3.PresignedUpload{
		URL:       "https://" + creds.Bucket + ".s3.example.com/" + in.Key + "?X-Amz-Signature=x",
		Method:    "PUT",
		Key:       in.Key,
		ExpiresAt: start.Add(in.Expiry),
	}, nil
}

func (p *fakePresigner) RemoveObject(_ context.Context, _ model.S3Credentials, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removed = append(p.removed, key)

	return nil
}

type env struct {
	svc       *service.Services
	clock     *clock
	pub       *recorder
	presigner *fakePresigner
	db        *db.Client
}

type option func(*service.Deps)

func withClassifier(c recognizer.Classifier) option {
	return func(d *service.Deps) {
		d.Classifier = c
		d.Recognizer.Provider = "test"
	}
}

func withCache(t *testing.T) option {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	return func(d *service.Deps) {
		d.Cache = cache.NewCache(store)
		d.Lifecycle.CacheTTL = 60
	}
}

func setup(t *testing.T, opts ...option) *env {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	client, err := db.Open(sqlite.Open("file:svc_"+name+"?mode=memory&cache=shared"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = db.NewMigrator(client.DB).Migrate(context.Background())
	require.NoError(t, err)

	e := &env{clock: &clock{t: start}, pub: &recorder{}, presigner: &fakePresigner{}, db: client}

	d := service.Deps{
		DB:        client.DB,
		Publisher: e.pub,
		Presigner: e.presigner,
		Clock:     e.clock.now,
		Lifecycle: configs.LifecycleConfig{
			TrashRetention: 7 * 24 * time.Hour,
			SweepBatch:     2,
			DefaultLimit:   20,
			MaxLimit:       100,
		},
		Recognizer: configs.RecognizerConfig{AutoOnSave: true},
	}

	for _, o := range opts {
		o(&d)
	}

	e.svc = service.New(d)

	return e
}

func (e *env) app(t *testing.T, caller types.Caller, withStorage bool) *model.App {
	t.Helper()

	ctx := context.Background()
	req := types.CreateAppRequest{Name: "gallery"}

	if withStorage {
		st, err := e.svc.Storages.Create(ctx, caller, types.StorageRequest{
			Name: "primary",
			Configuration: model.S3Credentials{
				Bucket: "photos", Region: "us-east-1", AccessKeyID: "ak", SecretAccessKey: "sk",
			},
		})
		require.NoError(t, err)

		req.StorageID = &st.ID
	}

	app, err := e.svc.Apps.Create(ctx, caller, req)
	require.NoError(t, err)

	return app
}

func (e *env) save(t *testing.T, caller types.Caller, appID, name string) *model.File {
	t.Helper()

	f, err := e.svc.Files.Save(context.Background(), caller, appID, types.SaveFileRequest{
		Name: name,
		URL:  "https://photos.s3.example.com/photos/2025-06-01/" + name,
		Type: "image/png",
	})
	require.NoError(t, err)

	e.clock.advance(time.Second)

	return f
}
