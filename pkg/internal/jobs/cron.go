// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/log"
	"github.com/RadiumAg/image-saas/pkg/scheduler"
)

// Sweeper 清理保留期已过的回收站文件.
type Sweeper interface {
	SweepExpired(ctx context.Context) (types.SweepResponse, error)
}

// Seeder 为所有应用补齐默认分类标签.
type Seeder interface {
	SeedAll(ctx context.Context) (int64, error)
}

// RegisterCronJobs 配置业务定时任务：
//   - 按 lifecycle.sweep_cron 清理过期回收站文件（sweep_enabled=false 时不注册）
//   - 每天 03:30 为缺少分类根标签的应用补齐默认分类
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, sweeper Sweeper, seeder Seeder, cfg configs.LifecycleConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if sweeper != nil && cfg.SweepEnabled {
		if err := sched.AddCron(ctx, JobTrashExpireSweep, cfg.SweepCron, func(ctx context.Context) error {
			return runExpireSweep(ctx, sweeper)
		}); err != nil {
			return err
		}
	}

	if seeder != nil {
		if err := sched.AddCron(ctx, JobTagsSeedDefaults, CronTagsSeedDefaults, func(ctx context.Context) error {
			return runSeedDefaults(ctx, seeder)
		}); err != nil {
			return err
		}
	}

	return nil
}

// runExpireSweep 分批永久删除过期文件.
func runExpireSweep(ctx context.Context, sweeper Sweeper) error {
	l := log.Component("jobs").With().Str("job", JobTrashExpireSweep).Logger()

	res, err := sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired files: %w", err)
	}

	if res.Purged > 0 {
		l.Info().Int("purged", res.Purged).Int("batches", res.Batches).Msg("expired trash purged")
	}

	return nil
}

// runSeedDefaults 补齐分类根标签，已存在的不会重复创建.
func runSeedDefaults(ctx context.Context, seeder Seeder) error {
	n, err := seeder.SeedAll(ctx)
	if err != nil {
		return fmt.Errorf("seed default tags: %w", err)
	}

	if n > 0 {
		l := log.Component("jobs")
		l.Info().Str("job", JobTagsSeedDefaults).Int64("created", n).Msg("default tags seeded")
	}

	return nil
}
