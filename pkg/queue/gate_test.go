package queue_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"

	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/queue"
)

type countingPublisher struct{ topics []string }

func (c *countingPublisher) Publish(topic string, _ ...*message.Message) error {
	c.topics = append(c.topics, topic)
	return nil
}

func (c *countingPublisher) Close() error { return nil }

func TestGatedPublisher(t *testing.T) {
	inner := &countingPublisher{}
	pub := queue.NewGatedPublisher(inner, configs.EventsConfig{
		Enabled: true,
		File:    configs.FileEventsConfig{Saved: true, Purged: true},
	})

	for _, topic := range append(append([]string{}, queue.FileTopics...), queue.RecognizeTopics...) {
		assert.NoError(t, pub.Publish(topic, message.NewMessage("1", nil)))
	}

	assert.Equal(t, []string{
		queue.TopicFileSaved, queue.TopicFilePurged,
		queue.TopicRecognizeRequested, queue.TopicRecognized, queue.TopicRecognizeFailed,
	}, inner.topics)
}

func TestGatedPublisherDisabled(t *testing.T) {
	inner := &countingPublisher{}
	pub := queue.NewGatedPublisher(inner, configs.EventsConfig{
		Enabled: false,
		File:    configs.FileEventsConfig{Saved: true, Trashed: true, Restored: true, Purged: true},
	})

	for _, topic := range queue.FileTopics {
		assert.False(t, pub.Enabled(topic))
	}

	assert.True(t, pub.Enabled(queue.TopicRecognizeRequested))
	assert.NoError(t, pub.Publish(queue.TopicFileSaved, message.NewMessage("1", nil)))
	assert.Empty(t, inner.topics)
}
