package middleware

import (
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/configs"
	"github.com/RadiumAg/image-saas/pkg/metrics"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 1024 // 每处理这么多请求清理一次闲置 limiter
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键懒创建 limiter，闲置超过 limiterIdleTTL 的条目在请求路径上被清理.
type limiterSet struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*keyedLimiter
	calls   int
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%limiterSweepEvery == 0 {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}
	}

	e, ok := s.entries[key]
	if !ok {
		e = &keyedLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter
}

// RateLimitMiddleware 令牌桶限流，按调用方或应用限流时需放在 AuthMiddleware 之后.
//
// Key 取值：global、ip、user（未认证退化为 IP）、app（调用方 + 路径中的 appId）、header:<Name>.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if mode == "" {
		mode = "global"
	}

	label := mode
	if strings.HasPrefix(mode, "header:") {
		label = "header"
	}

	set := &limiterSet{rps: rate.Limit(cfg.RPS), burst: cfg.Burst, entries: map[string]*keyedLimiter{}}

	return func(c *gin.Context) {
		now := time.Now()
		lim := set.get(limiterKey(c, mode), now)

		if !lim.AllowN(now, 1) {
			metrics.RateLimited.WithLabelValues(label).Inc()
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.RPS)))
			AbortWithError(c, apperr.TooManyRequests("rate limit exceeded, please try again later"))

			return
		}

		c.Next()
	}
}

func limiterKey(c *gin.Context, mode string) string {
	var key string

	switch {
	case mode == "global":
		return "*"
	case strings.HasPrefix(mode, "header:"):
		key = c.GetHeader(strings.TrimPrefix(mode, "header:"))
	case mode == "user":
		key = GetCaller(c).UserID
	case mode == "app":
		if user := GetCaller(c).UserID; user != "" {
			key = user + "/" + c.Param("appId")
		}
	}

	if key == "" {
		key = clientIP(c)
	}

	if key == "" {
		key = "unknown"
	}

	return key
}

// retryAfterSeconds 补满一个令牌所需的秒数，至少 1.
func retryAfterSeconds(rps float64) int {
	return int(math.Max(1, math.Ceil(1/rps)))
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
