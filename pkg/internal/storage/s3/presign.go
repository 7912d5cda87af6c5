package s3

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/RadiumAg/image-saas/pkg/internal/model"
)

// PresignedUpload 预签名上传结果.
type PresignedUpload struct {
	URL       string
	Method    string
	Key       string
	ExpiresAt time.Time
}

// PutObjectInput 上传参数.
type PutObjectInput struct {
	Key         string
	ContentType string
	Size        int64
	Expiry      time.Duration
}

// Presigner 使用应用绑定的存储配置签发上传地址并删除对象.
type Presigner interface {
	PresignPut(ctx context.Context, creds model.S3Credentials, in PutObjectInput) (PresignedUpload, error)
	RemoveObject(ctx context.Context, creds model.S3Credentials, key string) error
}

// 预签名实现名称.
const (
	PresignerMinio = "minio"
	PresignerAWS   = "aws"
)

// NewPresigner 按名称创建 Presigner.
func NewPresigner(kind string) (Presigner, error) {
	switch kind {
	case "", PresignerMinio:
		return MinioPresigner{}, nil
	case PresignerAWS:
		return AWSPresigner{}, nil
	default:
		return nil, fmt.Errorf("unsupported presigner: %s", kind)
	}
}

// ObjectKey 生成对象键 YYYY-MM-DD/<filename>-<uuid>.
func ObjectKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s/%s-%s", now.UTC().Format(time.DateOnly), filename, uuid.NewString())
}

// KeyFromPath 从文件记录的路径中取出对象键.
// 路径形如 /<bucket>/<key>（path-style）或 /<key>（virtual-host style）.
func KeyFromPath(bucket, path string) string {
	p := strings.TrimPrefix(path, "/")
	if bucket != "" {
		p = strings.TrimPrefix(p, bucket+"/")
	}

	return p
}

// MinioPresigner 基于 minio-go 的实现.
type MinioPresigner struct{}

func (MinioPresigner) client(creds model.S3Credentials) (*minio.Client, error) {
	endpoint := creds.APIEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", creds.Region)
	}

	host, secure := splitEndpoint(endpoint, true)

	return minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure: secure,
		// 指定 region 后签名无需查询 bucket 所在区域
		Region: creds.Region,
	})
}

// PresignPut 实现 Presigner.
func (p MinioPresigner) PresignPut(ctx context.Context, creds model.S3Credentials, in PutObjectInput) (PresignedUpload, error) {
	cli, err := p.client(creds)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("create minio client: %w", err)
	}

	u, err := cli.PresignedPutObject(ctx, creds.Bucket, in.Key, in.Expiry)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put %s: %w", in.Key, err)
	}

	return PresignedUpload{
		URL:       u.String(),
		Method:    http.MethodPut,
		Key:       in.Key,
		ExpiresAt: time.Now().UTC().Add(in.Expiry),
	}, nil
}

// RemoveObject 实现 Presigner.
func (p MinioPresigner) RemoveObject(ctx context.Context, creds model.S3Credentials, key string) error {
	cli, err := p.client(creds)
	if err != nil {
		return fmt.Errorf("create minio client: %w", err)
	}

	return cli.RemoveObject(ctx, creds.Bucket, key, minio.RemoveObjectOptions{})
}

// AWSPresigner 基于 aws-sdk-go-v2 的实现，ContentType 与 ContentLength 会参与签名.
type AWSPresigner struct{}

func (AWSPresigner) client(creds model.S3Credentials) *awss3.Client {
	cfg := aws.Config{
		Credentials: awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Region:      creds.Region,
		// SDK 自带指数退避重试
		RetryMode:        aws.RetryModeStandard,
		RetryMaxAttempts: 3,
	}

	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if creds.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(creds.APIEndpoint)
			o.UsePathStyle = true
		}
	})
}

// PresignPut 实现 Presigner.
func (p AWSPresigner) PresignPut(ctx context.Context, creds model.S3Credentials, in PutObjectInput) (PresignedUpload, error) {
	presigner := awss3.NewPresignClient(p.client(creds))

	input := &awss3.PutObjectInput{
		Bucket:      aws.String(creds.Bucket),
		Key:         aws.String(in.Key),
		ContentType: aws.String(in.ContentType),
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}

	req, err := presigner.PresignPutObject(ctx, input, awss3.WithPresignExpires(in.Expiry))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put %s: %w", in.Key, err)
	}

	return PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Key:       in.Key,
		ExpiresAt: time.Now().UTC().Add(in.Expiry),
	}, nil
}

// RemoveObject 实现 Presigner.
func (p AWSPresigner) RemoveObject(ctx context.Context, creds model.S3Credentials, key string) error {
	_, err := p.client(creds).DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(creds.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}
