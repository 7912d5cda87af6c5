// Package configs 管理应用程序配置，包括数据库、对象存储、消息队列、生命周期与 AI 识别等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing lifecycle config:
//
//	lc := configs.GetConfig().Lifecycle
//	fmt.Println("trash retention:", lc.TrashRetention)
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/RadiumAg/image-saas/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 IMAGESAAS_SERVER_PORT.
const EnvPrefix = "IMAGESAAS"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // 服务监听、调试、超时
		Log            LogConfig            `mapstructure:"log"`             // 日志
		DB             DBConfig             `mapstructure:"db"`              // 关系型数据库
		S3             S3Config             `mapstructure:"s3"`              // 对象存储与预签名
		KV             KVConfig             `mapstructure:"kv"`              // 键值缓存
		MQ             MQConfig             `mapstructure:"mq"`              // 消息队列
		Events         EventsConfig         `mapstructure:"events"`          // 事件发布开关
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // 监控
		Tracing        TracingConfig        `mapstructure:"tracing"`         // 链路追踪
		Auth           AuthConfig           `mapstructure:"auth"`            // 身份
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // 熔断
		Lifecycle      LifecycleConfig      `mapstructure:"lifecycle"`       // 回收站与分页
		Recognizer     RecognizerConfig     `mapstructure:"recognizer"`      // AI 标签识别
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	mu       sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空或不存在配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	hasFile := locateConfigFile(v, path)

	if hasFile {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	if hasFile {
		reloadConfigs(v, cfg.Server.ReloadConfig)
	}

	return nil
}

// locateConfigFile 判断 path 是文件还是目录，并为 viper 设置配置文件.
func locateConfigFile(v *viper.Viper, path string) bool {
	if path == "" {
		return false
	}

	// 是文件，使用SetConfigFile，Viper会自动检测类型
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)

		return true
	}

	exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}
	dirs := []string{path, filepath.Join(path, "configs")}

	for _, dir := range dirs {
		for _, ext := range exts {
			cfg := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				return true
			}
		}
	}

	return false
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig    ServerConfig
		logConfig       LogConfig
		dbConfig        DBConfig
		s3Config        S3Config
		kvConfig        KVConfig
		mqConfig        MQConfig
		eventsConfig    EventsConfig
		metricsConfig   MetricsConfig
		tracingConfig   TracingConfig
		authConfig      AuthConfig
		rateLimitConfig RateLimitConfig
		cbConfig        CircuitBreakerConfig
		lifecycleConfig LifecycleConfig
		recognizeConfig RecognizerConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	authConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	cbConfig.setDefaults(v)
	lifecycleConfig.setDefaults(v)
	recognizeConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载，校验失败时保留旧配置
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := rule.ValidateStruct(cfg); err != nil {
			fmt.Printf("Reloaded config rejected: %v\n", err)
			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例的副本指针.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	cfg := globalConfig

	return &cfg
}

// GetViper 返回当前使用的 viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}
