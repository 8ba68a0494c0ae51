package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// Sweeper periodically finalizes attempts left open past their deadline, so an
// attempt closes even when no client ever comes back for it.
type Sweeper struct {
	finalizer *attemptFinalizer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(repo repositories.Repository, logger *slog.Logger, aggregator ScoreAggregator, publisher events.EventPublisher, interval time.Duration, batchSize int, clock func() time.Time) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{
		finalizer: newAttemptFinalizer(repo, aggregator, publisher, logger),
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       clock,
	}
}

// Start runs the sweep loop until Stop is called or ctx ends. A non-positive
// interval leaves the sweeper disabled.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 {
		s.logger.Info("Expiry sweeper disabled")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	s.logger.Info("Expiry sweeper started", "interval", s.interval, "batch_size", s.batchSize)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce closes up to one batch of overdue attempts and reports how many
// were closed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	closed, err := s.finalizer.expireOverdue(ctx, nil, s.now(), s.batchSize)
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		s.logger.Info("Expired overdue attempts", "count", closed)
	}
	return closed, nil
}

// Stop ends the loop and waits for an in-flight sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		s.logger.Info("Expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
