// Package scheduler runs periodic background jobs using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vendora-inc/vendora/internal/shared/logger"
)

// BatchJob processes one batch per call and reports how many items it touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// SchedulerManager owns the process-wide gocron scheduler.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSubscriptionRefreshJob re-fetches the subscription record of every
// live session scope on a fixed interval. A run that overlaps the previous
// one is rescheduled rather than stacked.
func (m *SchedulerManager) RegisterSubscriptionRefreshJob(job BatchJob, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runBatch(ctx, "subscription refresh", job)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("subscription", "refresh"),
		gocron.WithName("subscription-refresh"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered subscription refresh job", "interval", interval)
	return nil
}

func (m *SchedulerManager) runBatch(ctx context.Context, name string, job BatchJob) {
	start := time.Now()

	count, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"count", count,
			"error", err,
			"duration", time.Since(start),
		)
		return
	}
	if count > 0 {
		m.logger.Infow("scheduled job completed",
			"job", name,
			"count", count,
			"duration", time.Since(start),
		)
	}
}

func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop shuts the scheduler down, waiting for running jobs to return.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
