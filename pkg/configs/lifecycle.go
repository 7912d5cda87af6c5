package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTrashRetention   = 7 * 24 * time.Hour // 回收站保留时长
	DefaultSweepCron        = "0 * * * *"        // 每小时清理一次过期文件
	DefaultSweepBatch       = 200                // 每批清理的文件数
	DefaultListLimit        = 20                 // 未指定 limit 时的分页大小
	DefaultMaxListLimit     = 100                // 分页上限
	DefaultTagCountCacheTTL = 30                 // 标签计数缓存（秒）
)

// LifecycleConfig 文件生命周期与分页配置.
type LifecycleConfig struct {
	TrashRetention time.Duration `mapstructure:"trash_retention" rule:"min=1s"`
	SweepEnabled   bool          `mapstructure:"sweep_enabled"`
	SweepCron      string        `mapstructure:"sweep_cron"      rule:"required"`
	SweepBatch     int           `mapstructure:"sweep_batch"     rule:"min=1,max=10000"`
	DefaultLimit   int           `mapstructure:"default_limit"   rule:"min=1,ltefield=MaxLimit"`
	MaxLimit       int           `mapstructure:"max_limit"       rule:"min=1,max=1000"`
	CacheTTL       int           `mapstructure:"cache_ttl"       rule:"min=0"` // 秒，0 表示不缓存
}

func (c *LifecycleConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("lifecycle.trash_retention", DefaultTrashRetention)
	v.SetDefault("lifecycle.sweep_enabled", true)
	v.SetDefault("lifecycle.sweep_cron", DefaultSweepCron)
	v.SetDefault("lifecycle.sweep_batch", DefaultSweepBatch)
	v.SetDefault("lifecycle.default_limit", DefaultListLimit)
	v.SetDefault("lifecycle.max_limit", DefaultMaxListLimit)
	v.SetDefault("lifecycle.cache_ttl", DefaultTagCountCacheTTL)
}
