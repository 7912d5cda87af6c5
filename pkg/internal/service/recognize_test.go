package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/recognizer"
	"github.com/RadiumAg/image-saas/pkg/queue"
)

func labels(out ...string) recognizer.Classifier {
	return recognizer.ClassifierFunc(func(context.Context, string) ([]string, error) {
		return out, nil
	})
}

func TestRecognizeForFile(t *testing.T) {
	var gotURL string

	c := recognizer.ClassifierFunc(func(_ context.Context, url string) ([]string, error) {
		gotURL = url
		return []string{"猫", "宠物", "一个超过二十个字符的非常非常非常长的识别结果标签"}, nil
	})

	e := setup(t, withClassifier(c))
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	res, err := e.svc.Recognize.RecognizeForFile(ctx, alice, f.ID, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, f.URL, gotURL)
	assert.ElementsMatch(t, []string{"猫", "宠物"}, names(res.Tags))

	_, err = e.svc.Recognize.RecognizeForFile(ctx, bob, f.ID, "")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRecognizeDegradesOnUpstreamFailure(t *testing.T) {
	failing := recognizer.ClassifierFunc(func(context.Context, string) ([]string, error) {
		return nil, apperr.UpstreamUnavailable("recognizer timed out", context.DeadlineExceeded)
	})

	e := setup(t, withClassifier(failing))
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	res, err := e.svc.Recognize.RecognizeForFile(ctx, alice, f.ID, "https://img.example.com/a.png")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Tags)
	assert.NotEmpty(t, res.Message)
}

func TestBackgroundRecognition(t *testing.T) {
	e := setup(t, withClassifier(labels("beach", "sunset")))
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	saved := e.pub.topic(queue.TopicFileSaved)
	require.Len(t, saved, 1)
	require.NoError(t, e.svc.Recognize.HandleSaved(saved[0]))

	requested := e.pub.topic(queue.TopicRecognizeRequested)
	require.Len(t, requested, 1)
	require.NoError(t, e.svc.Recognize.HandleRequested(requested[0]))

	tags, err := e.svc.Tags.ListForFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "sunset"}, names(tags))

	done := e.pub.topic(queue.TopicRecognized)
	require.Len(t, done, 1)

	// 文件被永久删除后，迟到的请求直接确认
	_, err = e.svc.Files.Purge(ctx, alice, app.ID, []string{f.ID})
	require.NoError(t, err)
	require.NoError(t, e.svc.Recognize.HandleRequested(requested[0]))
	assert.Len(t, e.pub.topic(queue.TopicRecognized), 1)
}

func TestEnqueue(t *testing.T) {
	e := setup(t, withClassifier(labels("x")))
	ctx := context.Background()
	app := e.app(t, alice, false)
	f := e.save(t, alice, app.ID, "a.png")

	require.NoError(t, e.svc.Recognize.Enqueue(ctx, alice, f.ID, "https://img.example.com/b.png"))

	msgs := e.pub.topic(queue.TopicRecognizeRequested)
	require.Len(t, msgs, 1)

	env, err := queue.ParseRecognizeRequested(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, f.ID, env.Payload.File.ID)
	assert.Equal(t, "https://img.example.com/b.png", env.Payload.ImageURL)

	assert.True(t, apperr.Is(e.svc.Recognize.Enqueue(ctx, bob, f.ID, ""), apperr.CodeNotFound))
}
