package s3_test

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/internal/model"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/s3"
)

var creds = model.S3Credentials{
	Bucket:          "photos",
	Region:          "us-east-1",
	AccessKeyID:     "AKIDEXAMPLE",
	SecretAccessKey: "secret",
	APIEndpoint:     "http://localhost:9000",
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 23, 59, 0, 0, time.FixedZone("CST", 8*3600))
	key := s3.ObjectKey(now, "cat.png")

	// 日期取 UTC.
	assert.Regexp(t, regexp.MustCompile(`^2025-03-09/cat\.png-[0-9a-f-]{36}$`), key)
	assert.NotEqual(t, key, s3.ObjectKey(now, "cat.png"))
}

func TestKeyFromPath(t *testing.T) {
	assert.Equal(t, "2025-03-09/a.png-x", s3.KeyFromPath("photos", "/photos/2025-03-09/a.png-x"))
	assert.Equal(t, "2025-03-09/a.png-x", s3.KeyFromPath("photos", "/2025-03-09/a.png-x"))
}

func TestNewPresigner(t *testing.T) {
	p, err := s3.NewPresigner("")
	require.NoError(t, err)
	assert.IsType(t, s3.MinioPresigner{}, p)

	p, err = s3.NewPresigner(s3.PresignerAWS)
	require.NoError(t, err)
	assert.IsType(t, s3.AWSPresigner{}, p)

	_, err = s3.NewPresigner("gcs")
	require.Error(t, err)
}

func TestPresignPut(t *testing.T) {
	in := s3.PutObjectInput{Key: "2025-03-09/cat.png-1", ContentType: "image/png", Size: 42, Expiry: 2 * time.Minute}

	for name, p := range map[string]s3.Presigner{"minio": s3.MinioPresigner{}, "aws": s3.AWSPresigner{}} {
		t.Run(name, func(t *testing.T) {
			out, err := p.PresignPut(context.Background(), creds, in)
			require.NoError(t, err)

			assert.Equal(t, http.MethodPut, out.Method)
			assert.Equal(t, in.Key, out.Key)
			assert.WithinDuration(t, time.Now().Add(2*time.Minute), out.ExpiresAt, 5*time.Second)

			u, err := url.Parse(out.URL)
			require.NoError(t, err)
			assert.Equal(t, "localhost:9000", u.Host)
			assert.Equal(t, "/photos/2025-03-09/cat.png-1", u.Path)
			assert.Equal(t, "120", u.Query().Get("X-Amz-Expires"))
			assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
		})
	}
}
