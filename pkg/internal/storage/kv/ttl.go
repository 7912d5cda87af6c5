package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ttlPrefix 标记带过期时间的包装值，供没有原生 TTL 的后端使用.
const ttlPrefix = "ISTTL1:"

type ttlEnvelope struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"e,omitempty"` // unix 毫秒，0 为永不过期
}

// wrapTTL 在 ttl>0 时把值包装为带过期时间的信封，返回值表示是否包装.
func wrapTTL(value []byte, ttl time.Duration, now time.Time) ([]byte, bool, error) {
	if ttl <= 0 {
		return value, false, nil
	}

	b, err := sonic.Marshal(ttlEnvelope{Value: value, ExpiresAt: now.Add(ttl).UnixMilli()})
	if err != nil {
		return nil, false, fmt.Errorf("marshal ttl envelope: %w", err)
	}

	return append([]byte(ttlPrefix), b...), true, nil
}

// unwrapTTL 拆开信封；未包装的值原样返回，过期时返回 ErrNotFound.
func unwrapTTL(b []byte, now time.Time) ([]byte, error) {
	if !bytes.HasPrefix(b, []byte(ttlPrefix)) {
		return b, nil
	}

	var env ttlEnvelope
	if err := sonic.Unmarshal(b[len(ttlPrefix):], &env); err != nil {
		return nil, fmt.Errorf("unmarshal ttl envelope: %w", err)
	}

	if env.ExpiresAt > 0 && now.UnixMilli() >= env.ExpiresAt {
		return nil, ErrNotFound
	}

	return env.Value, nil
}
