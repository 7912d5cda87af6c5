package queue_test

import (
	"context"
	"testing"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/queue"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := queue.FilesPurgedPayload{
		Files:  []queue.FileRef{{ID: "f1", AppID: "a1", OwnerID: "u1", Path: "/bucket/2025-01-02/x.png"}},
		Reason: queue.PurgeReasonManual,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFilePurged, payload,
		queue.WithTraceID("trace-1"), queue.WithProducer("test"))
	require.NoError(t, err)
	assert.Equal(t, queue.TopicFilePurged, msg.Metadata.Get("topic"))
	assert.Equal(t, "trace-1", msg.Metadata.Get("trace_id"))
	assert.Equal(t, queue.PayloadVersionV1, msg.Metadata.Get("version"))

	env, err := queue.ParseFilesPurged(msg)
	require.NoError(t, err)
	assert.Equal(t, queue.TopicFilePurged, env.Header.Topic)
	assert.Equal(t, "test", env.Header.Producer)
	assert.Equal(t, payload, env.Payload)
}

func TestPublishOverGoChannel(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := ps.Subscribe(ctx, queue.TopicRecognizeRequested)
	require.NoError(t, err)

	want := queue.RecognizeRequestedPayload{File: queue.FileRef{ID: "f1", OwnerID: "u1"}, ImageURL: "http://x/y.png"}
	require.NoError(t, queue.PublishRecognizeRequested(ps, want))

	select {
	case m := <-ch:
		env, err := queue.ParseRecognizeRequested(m)
		require.NoError(t, err)
		assert.Equal(t, want, env.Payload)
		m.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}
