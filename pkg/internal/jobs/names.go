package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobTrashExpireSweep = "trash.expire_sweep"
	JobTagsSeedDefaults = "tags.seed_defaults"
)

// Cron 表达式常量，回收站清理周期来自 lifecycle.sweep_cron.
const (
	CronTagsSeedDefaults = "30 3 * * *"
)
