package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// S3Config 平台默认对象存储配置，应用未绑定存储配置时也用于健康检查.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	Region          string `mapstructure:"region"`
	// Presigner 预签名实现：minio 或 aws.
	Presigner     string `mapstructure:"presigner"      rule:"oneof=minio aws"`
	PresignExpiry int    `mapstructure:"presign_expiry" rule:"min=1,max=604800"` // 秒
	RemoveOnPurge bool   `mapstructure:"remove_on_purge"`
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "image-saas"     // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultPresignExpiry     = 120              // 上传地址有效期（秒）
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// PresignExpiryDuration 返回预签名有效期.
func (c *S3Config) PresignExpiryDuration() time.Duration {
	return time.Duration(c.PresignExpiry) * time.Second
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.presigner", "minio")
	v.SetDefault("s3.presign_expiry", DefaultPresignExpiry)
	v.SetDefault("s3.remove_on_purge", true)
}
