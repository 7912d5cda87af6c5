package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/RadiumAg/image-saas/pkg/cache"
	ctxPkg "github.com/RadiumAg/image-saas/pkg/context"
)

const (
	// ResponseCacheTTL 读接口响应的默认缓存时间.
	ResponseCacheTTL = 30 * time.Second

	maxCachedBody = 1 << 20 // 1MB
)

// cachedResponse 缓存中保存的响应.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"` // unix nano
}

// ResponseCache 按调用方隔离的 GET 响应缓存.
//
// 键为 rc:<user>:<xxhash(path?query)>. 同一路由组内的写请求成功后清除该调用方的全部条目，
// 所以只能挂在读写接口都在组内的路由上. 命中时支持 If-None-Match，缓存读写失败不影响请求.
func ResponseCache(c *appcache.Cache, ttl time.Duration) gin.HandlerFunc {
	if c == nil {
		panic("ResponseCache: cache cannot be nil")
	}

	if ttl <= 0 {
		ttl = ResponseCacheTTL
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
			ctx.Next()
			invalidateCaller(ctx, c)

			return
		}

		key := responseKey(ctx)
		if serveCached(ctx, c, key) {
			return
		}

		w := &captureWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = w
		ctx.Next()
		storeResponse(ctx, c, key, w, ttl)
	}
}

// callerPrefix 调用方的缓存键前缀.
func callerPrefix(c *gin.Context) string {
	user := GetCaller(c).UserID
	if user == "" {
		user = "-"
	}

	return "rc:" + user + ":"
}

func invalidateCaller(ctx *gin.Context, c *appcache.Cache) {
	if ctx.Writer.Status() >= http.StatusBadRequest {
		return
	}

	if err := c.DeletePrefix(ctx.Request.Context(), callerPrefix(ctx)); err != nil {
		ctxPkg.Logger(ctx.Request.Context()).Warn().Err(err).Msg("invalidate response cache failed")
	}
}

// responseKey 使用实际路径而不是路由模板，不同 appId 不会共用条目. query 按键排序.
func responseKey(ctx *gin.Context) string {
	var b strings.Builder

	b.WriteString(ctx.Request.URL.Path)

	q := ctx.Request.URL.Query()
	keys := make([]string, 0, len(q))

	for k := range q {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(q[k], ","))
	}

	return fmt.Sprintf("%s%x", callerPrefix(ctx), xxhash.Sum64String(b.String()))
}

// captureWriter 复制响应体，超过上限后只透传不再缓存.
type captureWriter struct {
	gin.ResponseWriter

	buf      bytes.Buffer
	overflow bool
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.buf.Len()+len(b) > maxCachedBody {
			w.overflow = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

func serveCached(ctx *gin.Context, c *appcache.Cache, key string) bool {
	entry, err := appcache.Get[cachedResponse](ctx.Request.Context(), c, key)
	if err != nil {
		return false
	}

	h := ctx.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if ctx.GetHeader("If-None-Match") == entry.ETag {
		ctx.AbortWithStatus(http.StatusNotModified)
		return true
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	ctx.Status(entry.Status)

	if ctx.Request.Method != http.MethodHead {
		_, _ = ctx.Writer.Write(entry.Body)
	}

	ctx.Abort()

	return true
}

func storeResponse(ctx *gin.Context, c *appcache.Cache, key string, w *captureWriter, ttl time.Duration) {
	if ctx.Writer.Status() != http.StatusOK || w.overflow {
		return
	}

	if cc := strings.ToLower(ctx.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") {
		return
	}

	body := w.buf.Bytes()
	entry := cachedResponse{
		Status:      http.StatusOK,
		ContentType: ctx.Writer.Header().Get("Content-Type"),
		Body:        bytes.Clone(body),
		ETag:        fmt.Sprintf("%q", fmt.Sprintf("%x", xxhash.Sum64(body))),
		StoredAt:    time.Now().UnixNano(),
	}

	// 同步写入，避免与随后的写请求失效产生竞争
	if err := appcache.Set(context.WithoutCancel(ctx.Request.Context()), c, key, entry, ttl); err != nil {
		ctxPkg.Logger(ctx.Request.Context()).Debug().Err(err).Msg("store response cache failed")
	}
}
