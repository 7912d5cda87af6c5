package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RadiumAg/image-saas/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestAddCronDuplicate(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron(context.Background(), "b.job", "0 * * * *", noop))
	require.NoError(t, s.AddCron(context.Background(), "a.job", "0 * * * *", noop))
	assert.Error(t, s.AddCron(context.Background(), "a.job", "0 * * * *", noop))
	assert.Error(t, s.AddCron(context.Background(), "bad", "not a cron", noop))

	infos := s.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, "a.job", infos[0].Name)
	assert.False(t, infos[0].NextRun.IsZero())
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := newScheduler(t)

	var calls atomic.Int32

	require.NoError(t, s.AddCron(context.Background(), "flaky", "0 0 1 1 *", func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("boom")
		}

		return nil
	}))

	require.NoError(t, s.RunNow("flaky"))
	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("flaky")
		return err == nil && info.Runs == 1
	}, 2*time.Second, 10*time.Millisecond)

	info, _ := s.GetJobInfoByName("flaky")
	assert.Equal(t, scheduler.StatusError, info.Status)
	assert.Equal(t, "boom", info.Error)

	require.NoError(t, s.RunNow("flaky"))
	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("flaky")
		return err == nil && info.Runs == 2
	}, 2*time.Second, 10*time.Millisecond)

	info, _ = s.GetJobInfoByName("flaky")
	assert.Equal(t, scheduler.StatusScheduled, info.Status)
	assert.Empty(t, info.Error)
	assert.False(t, info.LastSuccess.IsZero())
}

func TestUnknownJob(t *testing.T) {
	s := newScheduler(t)

	assert.ErrorIs(t, s.RunNow("missing"), scheduler.ErrJobNotFound)
	assert.ErrorIs(t, s.RemoveJobByName("missing"), scheduler.ErrJobNotFound)

	_, err := s.GetJobInfoByName("missing")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)
}

func TestPanicIsRecorded(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron(context.Background(), "panics", "0 0 1 1 *", func(context.Context) error {
		panic("bad")
	}))
	require.NoError(t, s.RunNow("panics"))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("panics")
		return err == nil && info.Status == scheduler.StatusError
	}, 2*time.Second, 10*time.Millisecond)
}
