package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// Publish 将负载封装为信封后发布到 topic.
func Publish[T any](pub message.Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// PublishFileSaved 发布 is.file.saved 事件.
func PublishFileSaved(pub message.Publisher, payload FileSavedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicFileSaved, payload, opts...)
}

// PublishFilesTrashed 发布 is.file.trashed 事件.
func PublishFilesTrashed(pub message.Publisher, payload FilesTrashedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicFileTrashed, payload, opts...)
}

// PublishFilesRestored 发布 is.file.restored 事件.
func PublishFilesRestored(pub message.Publisher, payload FilesRestoredPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicFileRestored, payload, opts...)
}

// PublishFilesPurged 发布 is.file.purged 事件.
// 消费者据此删除对象存储中的 blob，失败不影响数据库中已完成的删除.
func PublishFilesPurged(pub message.Publisher, payload FilesPurgedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicFilePurged, payload, opts...)
}

// PublishRecognizeRequested 发布 is.recognize.requested 事件.
func PublishRecognizeRequested(pub message.Publisher, payload RecognizeRequestedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicRecognizeRequested, payload, opts...)
}

// ParseFilesPurged 将 Watermill 消息解析为强类型 Envelope（FilesPurgedPayload）.
func ParseFilesPurged(msg *message.Message) (Message[FilesPurgedPayload], error) {
	return ParseWatermillMessage[FilesPurgedPayload](msg)
}

// ParseRecognizeRequested 将 Watermill 消息解析为强类型 Envelope（RecognizeRequestedPayload）.
func ParseRecognizeRequested(msg *message.Message) (Message[RecognizeRequestedPayload], error) {
	return ParseWatermillMessage[RecognizeRequestedPayload](msg)
}

// ParseFileSaved 将 Watermill 消息解析为强类型 Envelope（FileSavedPayload）.
func ParseFileSaved(msg *message.Message) (Message[FileSavedPayload], error) {
	return ParseWatermillMessage[FileSavedPayload](msg)
}

// PublishRecognized 发布 is.recognize.done 事件.
func PublishRecognized(pub message.Publisher, payload RecognizedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicRecognized, payload, opts...)
}

// PublishRecognizeFailed 发布 is.recognize.failed 事件.
func PublishRecognizeFailed(pub message.Publisher, payload RecognizeFailedPayload, opts ...func(*EventHeader)) error {
	return Publish(pub, TopicRecognizeFailed, payload, opts...)
}
