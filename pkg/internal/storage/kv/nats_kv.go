package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/RadiumAg/image-saas/pkg/configs"
)

// NATSKV 基于 JetStream KV bucket 的实现.
// bucket 不支持单键 TTL，过期时间由 ttl.go 的信封记录并在读取时惰性清除.
type NATSKV struct {
	kv   nats.KeyValue
	conn *nats.Conn
}

// NewNATSKV 连接 NATS 并创建或复用 bucket.
func NewNATSKV(_ context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid NATS KV config: %T", config)
	}

	opts := []nats.Option{nats.Name("image-saas-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS %s: %w", cfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		bucket, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "image-saas listing cache",
			History:     1,
		})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{kv: bucket, conn: nc}, nil
}

// Get 读取并拆开 TTL 信封，过期时顺带删除.
func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	nk := escapeNATSKey(key)

	entry, err := n.kv.Get(nk)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("nats kv get %s: %w", key, err)
	}

	val, err := unwrapTTL(entry.Value(), time.Now())
	if errors.Is(err, ErrNotFound) {
		_ = n.kv.Delete(nk)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return val, err
}

// Set 写入值，ttl>0 时包装过期时间.
func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	payload, _, err := wrapTTL(value, ttl, time.Now())
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(escapeNATSKey(key), payload); err != nil {
		return fmt.Errorf("nats kv put %s: %w", key, err)
	}

	return nil
}

// Delete 删除键，键不存在不算错误.
func (n *NATSKV) Delete(_ context.Context, key string) error {
	err := n.kv.Delete(escapeNATSKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("nats kv delete %s: %w", key, err)
	}

	return nil
}

// Exists 检查键是否存在且未过期.
func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 枚举 bucket 中的键，按原始键名匹配 pattern.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("nats kv keys: %w", err)
	}

	out := make([]string, 0, len(keys))

	for _, nk := range keys {
		key := unescapeNATSKey(nk)
		if !matchPattern(pattern, key) {
			continue
		}

		if ok, err := n.Exists(ctx, key); err != nil || !ok {
			continue
		}

		out = append(out, key)
	}

	return out, nil
}

// Close 关闭连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

// NATS KV 键只允许 [-/_=.a-zA-Z0-9]，其余字节转义为 "=XX".
func escapeNATSKey(key string) string {
	var b strings.Builder

	for i := 0; i < len(key); i++ {
		c := key[i]
		if natsKeyByte(c) && c != '=' {
			b.WriteByte(c)
			continue
		}

		fmt.Fprintf(&b, "=%02X", c)
	}

	return b.String()
}

func unescapeNATSKey(nk string) string {
	var b strings.Builder

	for i := 0; i < len(nk); i++ {
		if nk[i] == '=' && i+2 < len(nk) {
			if c, err := strconv.ParseUint(nk[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(c))
				i += 2

				continue
			}
		}

		b.WriteByte(nk[i])
	}

	return b.String()
}

func natsKeyByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '/', c == '_', c == '=', c == '.':
		return true
	}

	return false
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
