// Package scheduler 封装 gocron/v2，记录每个任务的运行状态供管理接口查询.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/RadiumAg/image-saas/pkg/log"
)

// ErrJobNotFound 指定名称的任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 等待下次运行
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error" // 最近一次运行失败
)

// Job 定时任务，返回的错误记录到 JobInfo.
type Job func(ctx context.Context) error

// JobInfo 任务信息.
type JobInfo struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CronExpr     string        `json:"cronExpr"`
	NextRun      time.Time     `json:"nextRun"`
	LastRun      time.Time     `json:"lastRun"`
	LastSuccess  time.Time     `json:"lastSuccess"`
	LastDuration time.Duration `json:"lastDuration"`
	Runs         int64         `json:"runs"`
	Status       JobStatus     `json:"status"`
	Error        string        `json:"error,omitempty"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 定时任务调度器.
type Scheduler struct {
	scheduler gocron.Scheduler
	mu        sync.RWMutex
	entries   map[string]*entry
	logger    zerolog.Logger
	now       func() time.Time
}

// NewScheduler 创建调度器，需调用 Start 后任务才会运行.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		entries:   make(map[string]*entry),
		logger:    log.Component("scheduler"),
		now:       time.Now,
	}, nil
}

// AddCron 注册 cron 任务；同名任务只能注册一次，同一任务的运行不会重叠.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func(ctx context.Context) { s.run(ctx, name, job) }, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	s.entries[name] = &entry{job: j, info: JobInfo{
		ID:       j.ID().String(),
		Name:     name,
		CronExpr: cronExpr,
		Status:   StatusScheduled,
	}}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("added cron job")

	return nil
}

// run 执行任务并记录状态，panic 视为失败.
func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	started := s.now()
	s.update(name, func(info *JobInfo) { info.Status = StatusRunning })

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}
		}()

		return job(ctx)
	}()

	elapsed := s.now().Sub(started)

	s.update(name, func(info *JobInfo) {
		info.Runs++
		info.LastRun = started
		info.LastDuration = elapsed

		if err != nil {
			info.Status = StatusError
			info.Error = err.Error()

			return
		}

		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = started
	})

	if err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("elapsed", elapsed).Msg("job failed")
		return
	}

	s.logger.Debug().Str("job", name).Dur("elapsed", elapsed).Msg("job done")
}

func (s *Scheduler) update(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		fn(&e.info)
	}
}

// RunNow 立即触发一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e.job.RunNow()
}

// RemoveJobByName 移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.scheduler.RemoveJob(e.job.ID()); err != nil {
		return err
	}

	delete(s.entries, name)

	return nil
}

// GetJobInfoByName 返回任务信息副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return s.snapshot(e), nil
}

// GetJobInfos 返回按名称排序的全部任务信息.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		jobs = append(jobs, s.snapshot(e))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// snapshot 读取时计算下次运行时间，调用方需持有读锁.
func (s *Scheduler) snapshot(e *entry) JobInfo {
	info := e.info
	if next, err := e.job.NextRun(); err == nil {
		info.NextRun = next
	}

	return info
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.GetJobInfos())).Msg("starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")

	return s.scheduler.Shutdown()
}
