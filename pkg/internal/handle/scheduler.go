package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RadiumAg/image-saas/pkg/apperr"
	"github.com/RadiumAg/image-saas/pkg/scheduler"
)

// SchedulerJobs 返回定时任务信息（管理员）.
//
//	@Summary	定时任务
//	@Tags		调度
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/jobs [get]
func (h *Handler) SchedulerJobs(c *gin.Context) {
	if h.scheduler == nil {
		fail(c, apperr.UpstreamUnavailable("scheduler not running", nil))
		return
	}

	ok(c, gin.H{"jobs": h.scheduler.GetJobInfos(), "waiting": h.scheduler.JobsWaitingInQueue()})
}

// SchedulerRunJob 立即触发指定任务（管理员）.
//
//	@Summary	触发定时任务
//	@Tags		调度
//	@Param		name	path		string	true	"任务名"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	middleware.ErrorBody
//	@Router		/api/v1/scheduler/jobs/{name}/run [post]
func (h *Handler) SchedulerRunJob(c *gin.Context) {
	if h.scheduler == nil {
		fail(c, apperr.UpstreamUnavailable("scheduler not running", nil))
		return
	}

	name := c.Param("name")
	if err := h.scheduler.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			fail(c, apperr.NotFound("job", err))
			return
		}

		fail(c, err)

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "triggered"})
}
