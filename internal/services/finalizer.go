package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/timing"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

// attemptFinalizer is the one place an attempt moves to Submitted. Explicit
// submits, on-read expiry and the sweeper all go through it.
type attemptFinalizer struct {
	repo       repositories.Repository
	aggregator ScoreAggregator
	publisher  events.EventPublisher
	logger     *slog.Logger
}

func newAttemptFinalizer(repo repositories.Repository, aggregator ScoreAggregator, publisher events.EventPublisher, logger *slog.Logger) *attemptFinalizer {
	return &attemptFinalizer{
		repo:       repo,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
	}
}

// finalizeInTx closes the attempt and recomputes its score inside tx. The caller
// must hold the attempt row lock and call afterCommit once tx commits.
func (f *attemptFinalizer) finalizeInTx(ctx context.Context, tx repositories.Repository, attempt *models.Attempt, submittedAt time.Time, remaining int, reason models.AttemptEndReason) error {
	if remaining < 0 {
		remaining = 0
	}

	attempt.IsSubmitted = true
	attempt.SubmittedAt = &submittedAt
	attempt.TimeRemainingSeconds = &remaining
	attempt.EndReason = &reason

	if err := tx.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to submit attempt: %w", err)
	}

	return f.aggregator.Recompute(ctx, tx, attempt)
}

// expireInTx finalizes an overdue attempt at its deadline. It reports whether the
// attempt was closed.
func (f *attemptFinalizer) expireInTx(ctx context.Context, tx repositories.Repository, quiz *models.Quiz, attempt *models.Attempt, now time.Time) (bool, error) {
	if !timing.IsOverdue(quiz, attempt, now) {
		return false, nil
	}

	if err := f.finalizeInTx(ctx, tx, attempt, timing.Deadline(quiz, attempt), 0, models.EndReasonTimeOut); err != nil {
		return false, err
	}
	return true, nil
}

// expire closes attemptID in its own transaction when it is overdue
func (f *attemptFinalizer) expire(ctx context.Context, attemptID uint, now time.Time) (bool, error) {
	var closed *models.Attempt

	err := f.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if attempt.IsSubmitted {
			return nil
		}

		quiz, err := tx.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		expired, err := f.expireInTx(ctx, tx, quiz, attempt, now)
		if err != nil {
			return err
		}
		if expired {
			closed = attempt
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if closed != nil {
		f.afterCommit(ctx, closed)
	}
	return closed != nil, nil
}

// expireOverdue closes every overdue attempt of quizID (all quizzes when nil) up
// to limit; failures on single attempts are logged and skipped.
func (f *attemptFinalizer) expireOverdue(ctx context.Context, quizID *uint, now time.Time, limit int) (int, error) {
	overdue, err := f.repo.Attempt().ListOverdue(ctx, now, quizID, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue attempts: %w", err)
	}

	closed := 0
	for _, attempt := range overdue {
		ok, err := f.expire(ctx, attempt.ID, now)
		if err != nil {
			f.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

// afterCommit records the transition and emits attempt.finalized. Delivery
// failures are logged only.
func (f *attemptFinalizer) afterCommit(ctx context.Context, attempt *models.Attempt) {
	reason := models.EndReasonSubmitted
	if attempt.EndReason != nil {
		reason = *attempt.EndReason
	}
	metrics.AttemptsFinalized.WithLabelValues(string(reason)).Inc()

	f.logger.Info("Attempt finalized",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID,
		"student_id", attempt.StudentID,
		"end_reason", reason,
		"fully_graded", attempt.Score != nil)

	publish(ctx, f.publisher, f.logger, events.NewAttemptFinalizedEvent(attempt))
}

// publish delivers an event without letting a failure reach the caller
func publish(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}

	publishCtx, cancel := utils.DetachedContext(ctx, 5*time.Second)
	defer cancel()

	if err := publisher.Publish(publishCtx, event); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(event.Type)).Inc()
		logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
