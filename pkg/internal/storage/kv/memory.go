package kv

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memEntry 内存条目，零 deadline 为永不过期.
type memEntry struct {
	value    []byte
	deadline time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

// MemoryKV 进程内 KV，过期条目在读取或枚举时惰性清除.
// 单实例部署或测试时使用.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例，不需要配置.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	return &MemoryKV{data: make(map[string]memEntry), now: time.Now}, nil
}

// Get 返回值的副本.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if e.expired(m.now()) {
		m.mu.Lock()
		if cur, ok := m.data[key]; ok && cur.expired(m.now()) {
			delete(m.data, key)
		}
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return append([]byte(nil), e.value...), nil
}

// Set 写入值的副本.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.deadline = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

// Exists 检查键是否存在且未过期.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	return ok && !e.expired(m.now()), nil
}

// Keys 返回匹配 pattern 的未过期键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))

	for k, e := range m.data {
		if e.expired(now) || !matchPattern(pattern, k) {
			continue
		}

		keys = append(keys, k)
	}

	return keys, nil
}

// Close 内存实现无需释放资源.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
