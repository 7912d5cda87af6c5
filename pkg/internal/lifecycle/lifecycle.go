// Package lifecycle 描述文件的生命周期：Active -> Trashed -> Purged.
//
// 状态由两个可空字段决定：delete_at 为空表示 Active，非空表示 Trashed，
// 行被删除即 Purged. 批量操作按行独立套用同一规则，由存储层谓词实现：
//
//	Delete  仅作用于 delete_at IS NULL 的行
//	Restore 仅作用于 delete_at IS NOT NULL 的行
//	Purge   不限制状态
//	Expire  仅作用于 deleted_at_expiration <= now 的行
package lifecycle

import (
	"time"
)

// State 文件状态.
type State string

const (
	Active  State = "active"
	Trashed State = "trashed"
	Purged  State = "purged"
)

// Event 触发状态迁移的事件.
type Event string

const (
	Delete  Event = "delete"
	Restore Event = "restore"
	Purge   Event = "purge"
	Expire  Event = "expire"
)

// DefaultRetention 回收站默认保留时长.
const DefaultRetention = 7 * 24 * time.Hour

// Precision 持久化时间精度，数据库列统一为微秒.
const Precision = time.Microsecond

// Next 返回事件作用后的状态；ok 为 false 表示该事件对当前状态是空操作.
func Next(s State, e Event) (State, bool) {
	switch {
	case s == Purged:
		return Purged, false
	case e == Purge:
		return Purged, true
	case e == Delete && s == Active:
		return Trashed, true
	case e == Restore && s == Trashed:
		return Active, true
	case e == Expire && s == Trashed:
		return Purged, true
	default:
		return s, false
	}
}

// StateOf 根据 delete_at 推导状态.
func StateOf(deleteAt *time.Time) State {
	if deleteAt == nil {
		return Active
	}

	return Trashed
}

// Expiration 计算过期时间，保持 expiration == deleteAt + retention.
func Expiration(deleteAt time.Time, retention time.Duration) time.Time {
	if retention <= 0 {
		retention = DefaultRetention
	}

	return deleteAt.Add(retention)
}

// Normalize 统一为 UTC 并截断到持久化精度，保证写入值与读回值一致.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// Clock 时间来源，测试中可替换.
type Clock func() time.Time

// SystemClock 返回规范化后的当前时间.
func SystemClock() time.Time {
	return Normalize(time.Now())
}

// FixedClock 总是返回 t，用于测试.
func FixedClock(t time.Time) Clock {
	t = Normalize(t)

	return func() time.Time { return t }
}

// Marks 软删除时写入的一对时间戳.
type Marks struct {
	DeleteAt   time.Time
	Expiration time.Time
}

// TrashMarks 基于当前时间计算软删除标记.
func TrashMarks(now time.Time, retention time.Duration) Marks {
	now = Normalize(now)

	return Marks{DeleteAt: now, Expiration: Normalize(Expiration(now, retention))}
}
