package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// ExpiredSessionRemover deletes sessions past their expiry and reports how
// many went.
type ExpiredSessionRemover interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically removes expired sessions.
type SessionSweeper struct {
	remover  ExpiredSessionRemover
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	sched    gocron.Scheduler
}

func NewSessionSweeper(remover ExpiredSessionRemover, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	return &SessionSweeper{
		remover:  remover,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Start schedules the sweep every interval, with the first run right away.
func (s *SessionSweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			s.RunOnce(ctx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	s.sched = sched
	sched.Start()
	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// RunOnce performs a single sweep.
func (s *SessionSweeper) RunOnce(ctx context.Context) int64 {
	removed, err := s.remover.SweepExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", removed))
	}
	return removed
}

func (s *SessionSweeper) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
