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
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type correctionReconciler struct {
	repo       repositories.Repository
	logger     *slog.Logger
	validator  *validator.Validator
	aggregator ScoreAggregator
	finalizer  *attemptFinalizer
	now        func() time.Time
}

func NewCorrectionReconciler(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, aggregator ScoreAggregator, publisher events.EventPublisher, clock func() time.Time) CorrectionReconciler {
	if clock == nil {
		clock = time.Now
	}
	return &correctionReconciler{
		repo:       repo,
		logger:     logger,
		validator:  validator,
		aggregator: aggregator,
		finalizer:  newAttemptFinalizer(repo, aggregator, publisher, logger),
		now:        clock,
	}
}

// ===== MANUAL GRADING =====

// ApplyCorrection overrides the verdict of one answer and recomputes the
// attempt score in the same transaction. Points are stored as given.
func (s *correctionReconciler) ApplyCorrection(ctx context.Context, answerID uint, req *validator.CorrectionRequest, grader models.Principal) (*models.Answer, error) {
	s.logger.Info("Applying correction",
		"answer_id", answerID,
		"grader_id", grader.UserID)

	if !grader.CanGrade() {
		return nil, NewPermissionError(grader.UserID, answerID, "answer", "grade", "role cannot grade")
	}
	if req == nil {
		return nil, NewValidationError("points", "points is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	var expired *models.Attempt

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		answer, err := tx.Answer().GetByID(ctx, answerID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAnswerNotFound
			}
			return fmt.Errorf("failed to get answer: %w", err)
		}

		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, answer.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}

		quiz, err := tx.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		if !grader.IsAdmin() && !quiz.OwnedBy(grader.UserID) {
			return NewPermissionError(grader.UserID, answerID, "answer", "grade", "not the quiz owner")
		}

		if !attempt.IsSubmitted {
			if !timing.IsOverdue(quiz, attempt, now) {
				return NewBusinessRuleError("correction_requires_submission",
					"answers can only be corrected once the attempt is submitted",
					map[string]interface{}{"attempt_id": attempt.ID})
			}
			if _, err := s.finalizer.expireInTx(ctx, tx, quiz, attempt, now); err != nil {
				return err
			}
			expired = attempt
		}

		grade := repositories.AnswerGrade{
			Points:    *req.Points,
			IsCorrect: req.IsCorrect,
			GraderID:  grader.UserID,
			GradedAt:  now,
		}
		if err := tx.Answer().UpdateGrade(ctx, answerID, grade); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAnswerNotFound
			}
			return fmt.Errorf("failed to update answer grade: %w", err)
		}

		return s.aggregator.Recompute(ctx, tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		s.finalizer.afterCommit(ctx, expired)
	}
	metrics.CorrectionsApplied.Inc()

	answer, err := s.repo.Answer().GetByID(ctx, answerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("failed to reload answer: %w", err)
	}

	s.logger.Info("Correction applied",
		"answer_id", answerID,
		"attempt_id", answer.AttemptID,
		"grader_id", grader.UserID,
		"points", *req.Points)

	return answer, nil
}
