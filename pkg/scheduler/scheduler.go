// Package scheduler runs periodic maintenance tasks on standard 5-field cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Task is a unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler wraps a cron runner. A task never overlaps with its previous run.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Scheduler. Each run is bounded by timeout when positive.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Next returns the first fire time of expr after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// Add registers task under name on schedule expr.
func (s *Scheduler) Add(name, expr string, task Task) error {
	_, err := s.cron.AddFunc(expr, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("task scheduled", zap.String("task", name), zap.String("schedule", expr))
	return nil
}

func (s *Scheduler) run(name string, task Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Info("scheduled task finished", zap.String("task", name), zap.Duration("took", time.Since(start)))
}

// Start begins firing tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the runner, cancels in-flight tasks and waits for them, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
