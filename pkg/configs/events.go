package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）.
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig `mapstructure:"file"`
}

// FileEventsConfig 针对文件生命周期的事件开关.
type FileEventsConfig struct {
	Saved    bool `mapstructure:"saved"`
	Trashed  bool `mapstructure:"trashed"`
	Restored bool `mapstructure:"restored"`
	Purged   bool `mapstructure:"purged"` // 关闭后不会清理对象存储中的文件
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.file.saved", true)
	v.SetDefault("events.file.purged", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.file.trashed", false)
	v.SetDefault("events.file.restored", false)
}
