package handle

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
)

const healthTimeout = 2 * time.Second

// Health 汇总所有组件状态，任一组件异常返回 503.
//
//	@Summary	健康检查
//	@Tags		健康
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health [get]
func (h *Handler) Health(c *gin.Context) {
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}

	sort.Strings(names)

	status := http.StatusOK
	components := make(map[string]string, len(names))

	for _, name := range names {
		if err := h.check(c.Request.Context(), name); err != nil {
			status = http.StatusServiceUnavailable
			components[name] = err.Error()

			continue
		}

		components[name] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "components": components})
}

// HealthComponent 单个组件（db、s3、mq、kv）健康检查.
//
//	@Summary	组件健康检查
//	@Tags		健康
//	@Param		component	path		string	true	"db|s3|mq|kv"
//	@Success	200			{object}	map[string]string
//	@Failure	503			{object}	map[string]string
//	@Router		/api/v1/health/{component} [get]
func (h *Handler) HealthComponent(c *gin.Context) {
	name := c.Param("component")
	if _, found := h.checkers[name]; !found {
		fail(c, apperr.NotFound("component", nil))
		return
	}

	if err := h.check(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": name, "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": name, "status": "ok"})
}

func (h *Handler) check(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	return h.checkers[name].HealthCheck(ctx)
}
