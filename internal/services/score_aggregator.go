package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/grading"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type scoreAggregator struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewScoreAggregator(repo repositories.Repository, logger *slog.Logger) ScoreAggregator {
	return &scoreAggregator{repo: repo, logger: logger}
}

// Recompute sets the score to the exact sum of answer points, or nil while any
// answer is ungraded. An attempt without answers scores 0.
func (s *scoreAggregator) Recompute(ctx context.Context, repo repositories.Repository, attempt *models.Attempt) error {
	answers, err := repo.Answer().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load answers: %w", err)
	}

	points := make([]*float64, len(answers))
	for i, answer := range answers {
		points[i] = answer.Points
	}
	attempt.Score = grading.Aggregate(points)

	if err := repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}

	s.logger.Debug("Attempt score recomputed",
		"attempt_id", attempt.ID,
		"answers", len(answers),
		"fully_graded", attempt.Score != nil)

	return nil
}

// RecomputeAttempt runs Recompute in its own transaction. Only submitted
// attempts carry a score, so open ones are rejected.
func (s *scoreAggregator) RecomputeAttempt(ctx context.Context, attemptID uint, grader models.Principal) (*models.Attempt, error) {
	if !grader.CanGrade() {
		return nil, NewPermissionError(grader.UserID, attemptID, "attempt", "rescore", "role cannot grade")
	}

	var attempt *models.Attempt
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, err = tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		quiz, err := tx.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}
		if !grader.IsAdmin() && !quiz.OwnedBy(grader.UserID) {
			return NewPermissionError(grader.UserID, attemptID, "attempt", "rescore", "not the quiz owner")
		}

		if !attempt.IsSubmitted {
			return NewBusinessRuleError("score_requires_submission",
				"only submitted attempts can be rescored",
				map[string]interface{}{"attempt_id": attempt.ID})
		}
		return s.Recompute(ctx, tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt rescored",
		"attempt_id", attemptID,
		"grader_id", grader.UserID)
	return attempt, nil
}
