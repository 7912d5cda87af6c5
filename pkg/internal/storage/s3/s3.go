// Package s3 处理对象存储操作：平台默认存储的连接、按应用存储配置签发上传地址与删除对象.
package s3

import (
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/RadiumAg/image-saas/pkg/configs"
	nlog "github.com/RadiumAg/image-saas/pkg/log"
)

// Client 包装平台默认存储的 MinIO 客户端，主要用于健康检查.
type Client struct {
	*minio.Client
	cfg configs.S3Config
}

// splitEndpoint 允许用户传完整 schema endpoint（http:// 或 https://）.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host, u.Scheme == "https"
	}

	return endpoint, useSSL
}

// New 初始化 MinIO 客户端. minio.New 不会建立连接，不可达的存储不会阻止启动.
func New(_ context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	return &Client{Client: cli, cfg: *cfg}, nil
}

// EnsureBucket 确保平台默认 bucket 存在.
func (c *Client) EnsureBucket(ctx context.Context) error {
	bkt := c.cfg.BucketName
	if bkt == "" {
		return nil
	}

	exists, err := c.BucketExists(ctx, bkt)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bkt, err)
	}

	if !exists {
		if err := c.MakeBucket(ctx, bkt, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bkt, err)
		}

		nlog.Logger().Info().Str("bucket", bkt).Msg("bucket created")
	}

	return nil
}

// HealthCheck 通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// Config 返回创建时使用的配置.
func (c *Client) Config() configs.S3Config {
	return c.cfg
}
