// Package scheduler runs the periodic overdue sweep.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/service"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// OverdueLockKey is the Redis key guarding the sweep
const OverdueLockKey = "biblioteca:scheduler:overdue-sweep"

// OverdueMarker applies ativo -> atrasado to past-due loans
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (service.OverdueSweepResult, error)
}

type OverdueSweeper struct {
	marker  OverdueMarker
	lock    *RedisLock
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewOverdueSweeper builds the sweep job. lock may be nil when a single
// scheduler instance runs. timeout bounds one run.
func NewOverdueSweeper(marker OverdueMarker, lock *RedisLock, log *zap.Logger, timeout time.Duration) *OverdueSweeper {
	return &OverdueSweeper{
		marker:  marker,
		lock:    lock,
		log:     log,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run performs one sweep under the lock
func (s *OverdueSweeper) Run(ctx context.Context) (service.OverdueSweepResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.lock != nil {
		token, err := s.lock.Acquire(ctx)
		if err != nil {
			return service.OverdueSweepResult{}, err
		}
		defer func() {
			// Release with a fresh context; ctx may already be done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx, token); err != nil {
				s.log.Warn("failed to release overdue sweep lock", zap.Error(err))
			}
		}()
	}

	return s.marker.MarkOverdue(ctx, s.now())
}

// Job adapts Run to a cron callback that logs its outcome
func (s *OverdueSweeper) Job(ctx context.Context) func() {
	return func() {
		start := time.Now()
		s.log.Info("running overdue sweep")

		result, err := s.Run(ctx)
		switch {
		case errors.Is(err, customError.ErrSweepAlreadyRunning):
			s.log.Info("overdue sweep skipped, another instance holds the lock")
		case err != nil:
			s.log.Error("overdue sweep failed",
				zap.Error(err),
				zap.Int("marked", result.Marked),
				zap.Duration("duration", time.Since(start)),
			)
		default:
			s.log.Info("overdue sweep finished",
				zap.Int("candidates", result.Candidates),
				zap.Int("marked", result.Marked),
				zap.Int("skipped", result.Skipped),
				zap.Duration("duration", time.Since(start)),
			)
		}
	}
}

// Register schedules the sweep on c with a six-field cron spec
func Register(ctx context.Context, c *cron.Cron, spec string, sweeper *OverdueSweeper) (cron.EntryID, error) {
	return c.AddFunc(spec, sweeper.Job(ctx))
}
