// Package ids 生成按时间有序的 ULID 主键.
package ids

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(crand.Reader, 0)
)

// New 返回当前时间的 ULID 字符串，同一毫秒内单调递增.
func New() string {
	return NewAt(time.Now())
}

// NewAt 返回指定时间的 ULID 字符串.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
