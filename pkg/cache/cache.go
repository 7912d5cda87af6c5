// Package cache 提供基于键值存储的泛型缓存实现.
//
// 底层使用 sonic 序列化，支持 TTL. GetOrSet 通过 singleflight 合并同一个键的并发回源，
// 避免缓存失效瞬间的击穿.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient)
//
//	app, err := cache.GetOrSet(ctx, c, cache.Key("app", appID), func() (model.App, error) {
//	    return apps.Get(ctx, appID)
//	}, 30*time.Second)
//
//	// 变更后按前缀失效
//	_ = c.DeletePrefix(ctx, cache.Key("tags", ownerID))
//
// 错误处理:
//   - 缓存未命中不会被视为错误，GetOrSet 直接回源
//   - 写缓存失败只记录，不影响返回值
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/RadiumAg/image-saas/pkg/internal/storage/kv"
	nlog "github.com/RadiumAg/image-saas/pkg/log"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	group   singleflight.Group
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{
		kvStore: kvStore,
	}
}

// Key 以冒号拼接缓存键.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// DeletePrefix 删除以 prefix 开头的所有键.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.kvStore.Keys(ctx, prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := c.kvStore.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，如果不存在则回源并写入.
// 同一个键的并发回源只执行一次.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return value, err
		}

		if setErr := Set(ctx, c, key, value, ttl); setErr != nil {
			nlog.Logger().Warn().Err(setErr).Str("key", key).Msg("cache set failed")
		}

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Clear 清空缓存.
func (c *Cache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}
