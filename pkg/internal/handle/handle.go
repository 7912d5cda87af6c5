// Package handle 提供 HTTP 请求处理器，负责参数绑定、调用方提取与错误响应.
package handle

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/internal/service"
	"github.com/RadiumAg/image-saas/pkg/internal/types"
	"github.com/RadiumAg/image-saas/pkg/middleware"
	"github.com/RadiumAg/image-saas/pkg/rule"
	"github.com/RadiumAg/image-saas/pkg/scheduler"
)

// HealthChecker 可探活的外部依赖.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler 持有处理请求所需的服务.
type Handler struct {
	svc       *service.Services
	checkers  map[string]HealthChecker
	scheduler *scheduler.Scheduler
}

// Option 配置 Handler.
type Option func(*Handler)

// WithHealthChecker 注册组件健康检查，component 对应 /health/:component.
func WithHealthChecker(component string, hc HealthChecker) Option {
	return func(h *Handler) {
		if hc != nil {
			h.checkers[component] = hc
		}
	}
}

// WithScheduler 暴露调度器任务信息.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(h *Handler) { h.scheduler = s }
}

// New 创建 Handler.
func New(svc *service.Services, opts ...Option) *Handler {
	// gin 绑定与 rule 共用同一个 validator，需在首次绑定前切换到 rule 标签
	_ = rule.Engine()

	h := &Handler{svc: svc, checkers: map[string]HealthChecker{}}
	for _, o := range opts {
		o(h)
	}

	return h
}

func caller(c *gin.Context) types.Caller {
	return middleware.GetCaller(c)
}

// fail 统一错误响应.
func fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindError 把绑定或校验错误转换为 ValidationError.
func bindError(err error) error {
	if verrs := rule.Errors(err); verrs != nil {
		return apperr.Validation(verrs.Error(), err)
	}

	return apperr.Validation("invalid request", err)
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		fail(c, bindError(err))
		return false
	}

	return true
}

// bindOptionalJSON 请求体为空时保留零值.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}

	return bindJSON(c, obj)
}

func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		fail(c, bindError(err))
		return false
	}

	return true
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
