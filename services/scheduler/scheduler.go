package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/services/metrics"
)

const sweepTimeout = 2 * time.Minute

// Redeliverer sends again the notifications left Pending.
type Redeliverer interface {
	RedeliverStale(ctx context.Context, olderThan time.Duration) (notification.RedeliveryReport, error)
}

// Scheduler runs the background jobs.
type Scheduler struct {
	cronEngine  *cron.Cron
	redeliverer Redeliverer
	conf        core.JobsConfig
	logger      core.Logger
}

func New(redeliverer Redeliverer, conf core.JobsConfig, logger core.Logger) *Scheduler {
	return &Scheduler{
		cronEngine:  cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		redeliverer: redeliverer,
		conf:        conf,
		logger:      logger,
	}
}

// Start schedules the jobs; it fails on an invalid cron spec.
func (s *Scheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.conf.RedeliverySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return errors.Wrapf(err, "scheduling redelivery (%q)", s.conf.RedeliverySpec)
	}
	s.cronEngine.Start()
	s.logger.Info(fmt.Sprintf("scheduler started, redelivery: %s", s.conf.RedeliverySpec))
	return nil
}

// Sweep redelivers the stale notifications once.
func (s *Scheduler) Sweep(ctx context.Context) (notification.RedeliveryReport, error) {
	report, err := s.redeliverer.RedeliverStale(ctx, s.conf.RedeliveryStaleAge)
	metricsvc.RecordSweep(report.Delivered, report.Failed, err)
	if err != nil {
		s.logger.Error("redelivering stale notifications", err)
		return report, err
	}
	if report.Found > 0 {
		s.logger.Info(fmt.Sprintf("redelivered %d/%d stale notifications (%d failed)", report.Delivered, report.Found, report.Failed))
	}
	return report, nil
}

// Stop waits for the running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cronEngine.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
