package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/cache"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/internal/storage/kv"
	"github.com/RadiumAg/image-saas/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func whoami(c *gin.Context) {
	caller := middleware.GetCaller(c)
	c.JSON(http.StatusOK, gin.H{"user": caller.UserID, "admin": caller.Admin})
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{
		Enabled: true, UserHeader: "X-User", SkipPaths: []string{"/health"}, Admins: []string{"root@example.com"},
	}))
	r.GET("/me", whoami)
	r.GET("/health", whoami)

	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"unauthorized"}}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", map[string]string{"X-User": "alice"})
	assert.JSONEq(t, `{"user":"alice","admin":false}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", map[string]string{"X-Auth-Request-Email": "root@example.com"})
	assert.JSONEq(t, `{"user":"root@example.com","admin":true}`, w.Body.String())

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireMinRole(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{UserHeader: "X-User", Admins: []string{"root"}}))
	r.GET("/admin", middleware.RequireMinRole(middleware.RoleAdmin), whoami)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", map[string]string{"X-User": "alice"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", map[string]string{"X-User": "root"}).Code)
}

func TestRateLimitPerUser(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{UserHeader: "X-User"}))
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "user"}))
	r.GET("/me", whoami)

	alice := map[string]string{"X-User": "alice"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", alice).Code)

	w := do(r, http.MethodGet, "/me", alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
	assert.Equal(t, "1000", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/me", map[string]string{"X-User": "bob"}).Code)
}

func TestRateLimitPerApp(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{UserHeader: "X-User"}))
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "app"}))
	r.GET("/apps/:appId", whoami)

	alice := map[string]string{"X-User": "alice"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/apps/a1", alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/apps/a1", alice).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/apps/a2", alice).Code)
}

func TestCircuitBreaker(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled: true, FailureRate: 0.5, MinRequests: 2, IntervalSeconds: 60, TimeoutSeconds: 60, MaxRequestsInHalf: 1,
	}))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/boom", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/boom", nil).Code)

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_UNAVAILABLE")
}

func TestResponseCache(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	var hits atomic.Int32

	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{UserHeader: "X-User"}))

	g := r.Group("/apps", middleware.ResponseCache(cache.NewCache(store), time.Minute))
	g.GET("", func(c *gin.Context) {
		hits.Add(1)
		c.JSON(http.StatusOK, gin.H{"user": middleware.GetCaller(c).UserID, "n": hits.Load()})
	})
	g.GET("/:appId", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("appId")})
	})
	g.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })

	alice := map[string]string{"X-User": "alice"}

	first := do(r, http.MethodGet, "/apps", alice)
	second := do(r, http.MethodGet, "/apps", alice)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), hits.Load())

	// 其他调用方不共享缓存
	bob := do(r, http.MethodGet, "/apps", map[string]string{"X-User": "bob"})
	assert.Contains(t, bob.Body.String(), `"bob"`)

	// 写请求清除 alice 的缓存
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/apps", alice).Code)

	third := do(r, http.MethodGet, "/apps", alice)
	assert.Empty(t, third.Header().Get("X-Cache"))
	assert.Equal(t, int32(3), hits.Load())

	// 条件请求命中时返回 304
	fourth := do(r, http.MethodGet, "/apps", alice)
	etag := fourth.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, http.StatusNotModified, do(r, http.MethodGet, "/apps", map[string]string{"X-User": "alice", "If-None-Match": etag}).Code)

	// 路径参数不同的请求不共用缓存
	assert.Contains(t, do(r, http.MethodGet, "/apps/a1", alice).Body.String(), `"a1"`)
	assert.Contains(t, do(r, http.MethodGet, "/apps/a2", alice).Body.String(), `"a2"`)
}
