package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/grading"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/timing"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type answerStore struct {
	repo      repositories.Repository
	logger    *slog.Logger
	finalizer *attemptFinalizer
	now       func() time.Time
}

func NewAnswerStore(repo repositories.Repository, logger *slog.Logger, aggregator ScoreAggregator, publisher events.EventPublisher, clock func() time.Time) AnswerStore {
	if clock == nil {
		clock = time.Now
	}
	return &answerStore{
		repo:      repo,
		logger:    logger,
		finalizer: newAttemptFinalizer(repo, aggregator, publisher, logger),
		now:       clock,
	}
}

// errAttemptOverdue marks an upsert rejected because the attempt ran out of
// time; the attempt is expired once the transaction has ended.
var errAttemptOverdue = fmt.Errorf("attempt time limit elapsed: %w", ErrWindowClosed)

// UpsertAnswer stores the student's answer for one question, replacing any
// previous one, and grades it when the question allows auto-correction.
func (s *answerStore) UpsertAnswer(ctx context.Context, attemptID, questionID uint, req *validator.UpsertAnswerRequest, student models.Principal) (*models.Answer, error) {
	now := s.now()

	var answer *models.Answer
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		// shared lock: concurrent upserts proceed, finalization waits
		attempt, err := tx.Attempt().GetByIDForShare(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.StudentID != student.UserID {
			return NewPermissionError(student.UserID, attemptID, "attempt", "answer", "not owned by student")
		}
		if attempt.IsSubmitted {
			return ErrAlreadySubmitted
		}

		quiz, err := tx.Quiz().GetByID(ctx, attempt.QuizID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to get quiz: %w", err)
		}

		if timing.IsOverdue(quiz, attempt, now) {
			return errAttemptOverdue
		}
		if !timing.InWindow(quiz.StartAt, quiz.EndAt, now) {
			return ErrWindowClosed
		}

		question, err := tx.Question().GetByID(ctx, questionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}
		if question.QuizID != quiz.ID {
			return ErrQuestionNotFound
		}

		payload, err := buildPayload(question, req)
		if err != nil {
			return err
		}

		verdict, err := grading.Evaluate(question, payload)
		if err != nil {
			s.logger.Warn("Auto-grading unavailable, deferring to manual review",
				"question_id", questionID,
				"error", err)
			verdict = grading.Verdict{NeedsManualReview: true}
		}

		answer = &models.Answer{
			AttemptID:         attemptID,
			QuestionID:        questionID,
			Text:              payload.Text,
			SelectedOptionIDs: payload.SelectedOptionIDs,
			IsCorrect:         verdict.IsCorrect,
			Points:            verdict.Points,
			NeedsManualReview: verdict.NeedsManualReview,
		}
		if err := tx.Answer().Upsert(ctx, answer); err != nil {
			return fmt.Errorf("failed to store answer: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAttemptOverdue) {
			if _, expireErr := s.finalizer.expire(ctx, attemptID, now); expireErr != nil {
				s.logger.Error("Failed to expire overdue attempt", "attempt_id", attemptID, "error", expireErr)
			}
			return nil, ErrWindowClosed
		}
		return nil, err
	}

	metrics.AnswersUpserted.WithLabelValues(verdictLabel(answer)).Inc()
	s.logger.Info("Answer recorded",
		"attempt_id", attemptID,
		"question_id", questionID,
		"student_id", student.UserID,
		"needs_manual_review", answer.NeedsManualReview)

	return answer, nil
}

// buildPayload checks the submitted shape against the question type. Option
// ids must belong to the question; the selection is stored normalized.
func buildPayload(question *models.Question, req *validator.UpsertAnswerRequest) (grading.Payload, error) {
	if req == nil {
		req = &validator.UpsertAnswerRequest{}
	}

	if !question.Type.IsChoice() {
		if len(req.SelectedOptionIDs) > 0 {
			return grading.Payload{}, NewValidationError("selected_option_ids", "options cannot be selected for a text question", req.SelectedOptionIDs)
		}
		return grading.Payload{Text: req.Text}, nil
	}

	for _, optionID := range req.SelectedOptionIDs {
		if !question.HasOption(optionID) {
			return grading.Payload{}, NewValidationError("selected_option_ids", fmt.Sprintf("option %d does not belong to question %d", optionID, question.ID), optionID)
		}
	}

	selected := grading.NormalizeSelection(req.SelectedOptionIDs)
	if selected == nil {
		selected = []uint{}
	}
	return grading.Payload{SelectedOptionIDs: selected}, nil
}

func verdictLabel(answer *models.Answer) string {
	switch {
	case answer.NeedsManualReview:
		return "manual"
	case answer.IsCorrect != nil && *answer.IsCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}
