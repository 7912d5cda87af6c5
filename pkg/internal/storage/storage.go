// Package storage 聚合服务运行所需的外部资源：数据库、平台对象存储、消息队列与键值缓存.
//
// Example:
//
//	mgr, err := storage.Open(ctx, configs.GetConfig())
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
//	files := store.NewFileStore(mgr.DB.GetDB())
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/RadiumAg/image-saas/pkg/configs"
	dbc "github.com/RadiumAg/image-saas/pkg/internal/storage/db"
	kvc "github.com/RadiumAg/image-saas/pkg/internal/storage/kv"
	mqc "github.com/RadiumAg/image-saas/pkg/internal/storage/mq"
	s3c "github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
	nlog "github.com/RadiumAg/image-saas/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB *dbc.Client
	S3 *s3c.Client
	MQ *mqc.Client
	KV *kvc.Client
}

// Open 按给定配置创建资源；任一资源失败时关闭已打开的资源.
func Open(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	var err error

	if m.DB, err = dbc.Connect(ctx, &cfg.DB, cfg.Metrics.Enabled); err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	if m.S3, err = s3c.New(ctx, &cfg.S3); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("s3: %w", err)
	}

	if m.MQ, err = mqc.Open(ctx, &cfg.MQ, cfg.Metrics); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("mq: %w", err)
	}

	if m.KV, err = kvc.Open(ctx, &cfg.KV); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("kv: %w", err)
	}

	nlog.Logger().Info().
		Str("db", cfg.DB.GetDBType()).
		Str("mq", string(cfg.MQ.Type)).
		Str("kv", cfg.KV.Type).
		Msg("storage manager initialized")

	return m, nil
}

// Close 依次关闭所有已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
