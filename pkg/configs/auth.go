package configs

import "github.com/spf13/viper"

// AuthConfig 控制调用方身份提取（优先支持 oauth2-proxy 注入的请求头）.
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`         // 开启认证校验
	UserHeader    string   `mapstructure:"user_header"`     // 调用方身份请求头
	SkipPaths     []string `mapstructure:"skip_paths"`      // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许用 ?user= 便于本地调试
	Admins        []string `mapstructure:"admins"`          // 可访问管理接口（调度、清理）的用户
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.user_header", "X-User")
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.admins", []string{})
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
	})
}
