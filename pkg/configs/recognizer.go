package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRecognizerTimeout = 30 * time.Second
	DefaultSparkHost         = "spark-api.cn-huabei-1.xf-yun.com"
	DefaultSparkPath         = "/v2.1/image"
	DefaultSparkDomain       = "imagev3"
	DefaultMaxImageBytes     = 4 * 1024 * 1024
)

// RecognizerConfig AI 图片标签识别配置.
type RecognizerConfig struct {
	Provider      string               `mapstructure:"provider"        rule:"oneof=spark none"`
	Timeout       time.Duration        `mapstructure:"timeout"         rule:"min=1s"`
	AutoOnSave    bool                 `mapstructure:"auto_on_save"`   // 保存文件后异步识别
	Prompt        string               `mapstructure:"prompt"`
	MaxImageBytes int64                `mapstructure:"max_image_bytes" rule:"min=1"`
	Spark         SparkConfig          `mapstructure:"spark"`
	Breaker       CircuitBreakerConfig `mapstructure:"breaker"`
}

// SparkConfig 讯飞星火图片理解接口配置.
type SparkConfig struct {
	AppID     string `mapstructure:"app_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Host      string `mapstructure:"host"   rule:"required"`
	Path      string `mapstructure:"path"   rule:"required"`
	Domain    string `mapstructure:"domain" rule:"required"`
}

func (c *RecognizerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("recognizer.provider", "none")
	v.SetDefault("recognizer.timeout", DefaultRecognizerTimeout)
	v.SetDefault("recognizer.auto_on_save", true)
	v.SetDefault("recognizer.prompt",
		"请识别这张图片中的人物、地点和事件，只输出不超过10个字的中文标签，用逗号分隔，不要输出其他内容。")
	v.SetDefault("recognizer.max_image_bytes", DefaultMaxImageBytes)
	v.SetDefault("recognizer.spark.app_id", "")
	v.SetDefault("recognizer.spark.api_key", "")
	v.SetDefault("recognizer.spark.api_secret", "")
	v.SetDefault("recognizer.spark.host", DefaultSparkHost)
	v.SetDefault("recognizer.spark.path", DefaultSparkPath)
	v.SetDefault("recognizer.spark.domain", DefaultSparkDomain)

	setCircuitBreakerDefaults(v, "recognizer.breaker", true)
	v.SetDefault("recognizer.breaker.min_requests", 5)
}
