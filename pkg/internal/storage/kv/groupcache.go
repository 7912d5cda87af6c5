package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// GroupcacheKV 以 groupcache 作为读缓存层，本节点持有源数据.
// groupcache 加载过的值不会失效，因此查询键带上写入代数，Set/Delete 后旧代数的缓存自然不再命中.
type GroupcacheKV struct {
	group *groupcache.Group
	pool  *groupcache.HTTPPool

	mu   sync.RWMutex
	data map[string]gcEntry
	gen  uint64
}

type gcEntry struct {
	gen     uint64
	payload []byte // 经 wrapTTL 包装
}

// NewGroupcacheKV 创建 groupcache 组，配置了对等节点时启用 HTTP 池.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config: %T", config)
	}

	g := &GroupcacheKV{data: make(map[string]gcEntry)}
	g.group = groupcache.NewGroup(cfg.Name, cfg.CacheBytes, groupcache.GetterFunc(g.load))

	if len(cfg.Peers) > 0 {
		g.pool = groupcache.NewHTTPPoolOpts(cfg.Self, &groupcache.HTTPPoolOptions{})
		g.pool.Set(cfg.Peers...)
	}

	return g, nil
}

// load 是 groupcache 的回源函数，versioned 形如 "<gen>|<key>".
func (g *GroupcacheKV) load(_ context.Context, versioned string, dest groupcache.Sink) error {
	genStr, key, ok := strings.Cut(versioned, "|")
	if !ok {
		return fmt.Errorf("malformed groupcache key: %s", versioned)
	}

	g.mu.RLock()
	e, exists := g.data[key]
	g.mu.RUnlock()

	if !exists || strconv.FormatUint(e.gen, 10) != genStr {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return dest.SetBytes(e.payload)
}

// Get 通过 groupcache 读取当前代数的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	e, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	var payload []byte

	versioned := strconv.FormatUint(e.gen, 10) + "|" + key
	if err := g.group.Get(ctx, versioned, groupcache.AllocatingByteSliceSink(&payload)); err != nil {
		return nil, fmt.Errorf("groupcache get %s: %w", key, err)
	}

	val, err := unwrapTTL(payload, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, key)
	}

	return val, nil
}

// Set 写入新代数的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	payload, _, err := wrapTTL(append([]byte(nil), value...), ttl, time.Now())
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.gen++
	g.data[key] = gcEntry{gen: g.gen, payload: payload}
	g.mu.Unlock()

	return nil
}

// Delete 删除源数据，已缓存的旧代数不再可达.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()

	return nil
}

// Exists 检查源数据是否存在且未过期.
func (g *GroupcacheKV) Exists(_ context.Context, key string) (bool, error) {
	g.mu.RLock()
	e, ok := g.data[key]
	g.mu.RUnlock()

	if !ok {
		return false, nil
	}

	_, err := unwrapTTL(e.payload, time.Now())

	return err == nil, nil
}

// Keys 枚举本节点持有的未过期键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))

	for k, e := range g.data {
		if !matchPattern(pattern, k) {
			continue
		}

		if _, err := unwrapTTL(e.payload, now); err != nil {
			continue
		}

		keys = append(keys, k)
	}

	return keys, nil
}

// Close groupcache 没有需要释放的资源.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
