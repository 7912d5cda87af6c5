// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：is.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：file(文件生命周期)、recognize(图像识别)
// 状态：请求(requested)、完成(ed)、失败(failed)

const (
	// 文件生命周期领域.
	TopicFileSaved    = "is.file.saved"    // 文件记录已写入数据库
	TopicFileTrashed  = "is.file.trashed"  // 文件进入回收站
	TopicFileRestored = "is.file.restored" // 文件从回收站恢复
	TopicFilePurged   = "is.file.purged"   // 文件被永久删除，消费者负责清理对象存储

	// 图像识别领域.
	TopicRecognizeRequested = "is.recognize.requested" // 请求异步识别图片标签
	TopicRecognized         = "is.recognize.done"      // 识别完成并已写入标签
	TopicRecognizeFailed    = "is.recognize.failed"    // 识别失败或降级为空结果
)

// 主题分组，用于批量操作或权限控制.
var (
	// 文件生命周期相关主题集合.
	FileTopics = []string{
		TopicFileSaved, TopicFileTrashed, TopicFileRestored, TopicFilePurged,
	}

	// 图像识别相关主题集合.
	RecognizeTopics = []string{
		TopicRecognizeRequested, TopicRecognized, TopicRecognizeFailed,
	}
)
