package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepFunc runs one overdue sweep as of the given time.
type SweepFunc func(ctx context.Context, asOf time.Time) ([]string, error)

// Scheduler runs the overdue sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweep   SweepFunc
	timeout time.Duration
	log     *zap.Logger
}

func NewScheduler(spec string, timeout time.Duration, sweep SweepFunc, log *zap.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:    c,
		sweep:   sweep,
		timeout: timeout,
		log:     log.Named("scheduler"),
	}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	swept, err := s.sweep(ctx, time.Time{})
	if err != nil {
		s.log.Error("overdue sweep", zap.Error(err))
		return
	}
	s.log.Info("overdue sweep done", zap.Int("records", len(swept)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
