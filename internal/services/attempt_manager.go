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
)

type attemptManager struct {
	repo      repositories.Repository
	logger    *slog.Logger
	finalizer *attemptFinalizer
	now       func() time.Time
}

func NewAttemptManager(repo repositories.Repository, logger *slog.Logger, aggregator ScoreAggregator, publisher events.EventPublisher, clock func() time.Time) AttemptManager {
	if clock == nil {
		clock = time.Now
	}
	return &attemptManager{
		repo:      repo,
		logger:    logger,
		finalizer: newAttemptFinalizer(repo, aggregator, publisher, logger),
		now:       clock,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// StartAttempt hands out the student's open attempt, creating one when the
// window, enrollment and retry policy allow it.
func (s *attemptManager) StartAttempt(ctx context.Context, quizID uint, student models.Principal) (*AttemptResponse, error) {
	now := s.now()
	s.logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"student_id", student.UserID)

	quiz, err := s.getQuiz(ctx, s.repo, quizID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Subject().GetByID(ctx, quiz.SubjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	if !timing.InWindow(quiz.StartAt, quiz.EndAt, now) {
		return nil, ErrWindowClosed
	}

	enrolled, err := s.repo.Enrollment().HasAccess(ctx, quiz.SubjectID, student.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, NewPermissionError(student.UserID, quizID, "quiz", "attempt", "not enrolled in subject")
	}

	open, err := s.openAttempt(ctx, quiz, student.UserID, now)
	if err != nil {
		return nil, err
	}
	if open != nil {
		metrics.AttemptsStarted.WithLabelValues("resumed").Inc()
		s.logger.Info("Resuming existing attempt", "attempt_id", open.ID)
		return s.toResponse(quiz, open, now, true), nil
	}

	if !quiz.AllowRetries {
		submitted, err := s.repo.Attempt().HasSubmittedAttempt(ctx, quizID, student.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check previous attempts: %w", err)
		}
		if submitted {
			return nil, ErrAlreadyAttempted
		}
	}

	attempt := &models.Attempt{
		QuizID:    quizID,
		StudentID: student.UserID,
		StartedAt: now,
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		// a concurrent start won the unique open-attempt index
		existing, getErr := s.repo.Attempt().GetOpenAttempt(ctx, quizID, student.UserID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrent attempt: %w", getErr)
		}
		metrics.AttemptsStarted.WithLabelValues("resumed").Inc()
		return s.toResponse(quiz, existing, now, true), nil
	}

	metrics.AttemptsStarted.WithLabelValues("started").Inc()
	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"student_id", student.UserID)

	return s.toResponse(quiz, attempt, now, false), nil
}

// openAttempt returns the student's open attempt, closing it first when its
// deadline has passed (in which case nil is returned).
func (s *attemptManager) openAttempt(ctx context.Context, quiz *models.Quiz, studentID string, now time.Time) (*models.Attempt, error) {
	open, err := s.repo.Attempt().GetOpenAttempt(ctx, quiz.ID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open attempt: %w", err)
	}

	if !timing.IsOverdue(quiz, open, now) {
		return open, nil
	}

	if _, err := s.finalizer.expire(ctx, open.ID, now); err != nil {
		return nil, fmt.Errorf("failed to expire attempt: %w", err)
	}
	return nil, nil
}

// FinalizeAttempt submits the attempt. A second call returns the stored state.
func (s *attemptManager) FinalizeAttempt(ctx context.Context, attemptID uint, clientRemainingSeconds *int, student models.Principal) (*AttemptResponse, error) {
	now := s.now()
	s.logger.Info("Finalizing attempt",
		"attempt_id", attemptID,
		"student_id", student.UserID)

	var (
		quiz      *models.Quiz
		finalized *models.Attempt
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}

		if attempt.StudentID != student.UserID {
			return NewPermissionError(student.UserID, attemptID, "attempt", "finalize", "not owned by student")
		}

		quiz, err = s.getQuiz(ctx, tx, attempt.QuizID)
		if err != nil {
			return err
		}

		if attempt.IsSubmitted {
			s.logger.Info("Attempt already finalized", "attempt_id", attemptID)
			return nil
		}

		// past the deadline the attempt closes at the deadline, not at now
		expired, err := s.finalizer.expireInTx(ctx, tx, quiz, attempt, now)
		if err != nil {
			return err
		}
		if !expired {
			remaining := 0
			if clientRemainingSeconds != nil {
				remaining = *clientRemainingSeconds
			}
			if err := s.finalizer.finalizeInTx(ctx, tx, attempt, now, remaining, models.EndReasonSubmitted); err != nil {
				return err
			}
		}

		finalized = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalized != nil {
		s.finalizer.afterCommit(ctx, finalized)
	}

	attempt, err := s.getAttemptWithAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if verdictsHidden(quiz, attempt, student) {
		hideVerdicts(attempt)
	}
	return s.toResponse(quiz, attempt, now, false), nil
}

// ===== READS =====

func (s *attemptManager) GetAttempt(ctx context.Context, attemptID uint, caller models.Principal) (*AttemptResponse, error) {
	now := s.now()

	quiz, err := s.authorizeRead(ctx, attemptID, caller, now)
	if err != nil {
		return nil, err
	}

	attempt, err := s.getAttemptWithAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if verdictsHidden(quiz, attempt, caller) {
		hideVerdicts(attempt)
	}

	return s.toResponse(quiz, attempt, now, false), nil
}

// TimeRemaining is the server-side countdown a client resyncs against
func (s *attemptManager) TimeRemaining(ctx context.Context, attemptID uint, caller models.Principal) (*TimeRemainingResponse, error) {
	now := s.now()

	quiz, err := s.authorizeRead(ctx, attemptID, caller, now)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, s.attemptError(err)
	}

	return &TimeRemainingResponse{
		AttemptID:        attempt.ID,
		RemainingSeconds: timing.RemainingForAttempt(quiz, attempt, now),
		Deadline:         timing.Deadline(quiz, attempt),
		IsSubmitted:      attempt.IsSubmitted,
		ServerTime:       now,
	}, nil
}

// ListAttempts is restricted to the quiz owner and admins. Overdue attempts
// are closed before listing.
func (s *attemptManager) ListAttempts(ctx context.Context, quizID uint, filters repositories.AttemptFilters, grader models.Principal) (*AttemptListResponse, error) {
	now := s.now()

	quiz, err := s.getQuiz(ctx, s.repo, quizID)
	if err != nil {
		return nil, err
	}
	if !grader.IsAdmin() && !quiz.OwnedBy(grader.UserID) {
		return nil, NewPermissionError(grader.UserID, quizID, "quiz", "list attempts", "not the quiz owner")
	}

	if closed, err := s.finalizer.expireOverdue(ctx, &quizID, now, 0); err != nil {
		s.logger.Warn("Failed to expire overdue attempts before listing", "quiz_id", quizID, "error", err)
	} else if closed > 0 {
		s.logger.Info("Expired overdue attempts", "quiz_id", quizID, "count", closed)
	}

	attempts, total, err := s.repo.Attempt().ListByQuiz(ctx, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []*models.Attempt{}
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

// ===== HELPERS =====

// authorizeRead lets the owning student, the quiz owner and admins read an
// attempt, expiring it first when overdue.
func (s *attemptManager) authorizeRead(ctx context.Context, attemptID uint, caller models.Principal, now time.Time) (*models.Quiz, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, s.attemptError(err)
	}

	quiz, err := s.getQuiz(ctx, s.repo, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	if attempt.StudentID != caller.UserID && !caller.IsAdmin() && !quiz.OwnedBy(caller.UserID) {
		return nil, NewPermissionError(caller.UserID, attemptID, "attempt", "view", "not the student, quiz owner or an admin")
	}

	if timing.IsOverdue(quiz, attempt, now) {
		if _, err := s.finalizer.expire(ctx, attemptID, now); err != nil {
			return nil, fmt.Errorf("failed to expire attempt: %w", err)
		}
	}

	return quiz, nil
}

func (s *attemptManager) getQuiz(ctx context.Context, repo repositories.Repository, quizID uint) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

func (s *attemptManager) getAttemptWithAnswers(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		return nil, s.attemptError(err)
	}
	return attempt, nil
}

func (s *attemptManager) attemptError(err error) error {
	if repositories.IsNotFoundError(err) {
		return ErrAttemptNotFound
	}
	return fmt.Errorf("failed to get attempt: %w", err)
}

func (s *attemptManager) toResponse(quiz *models.Quiz, attempt *models.Attempt, now time.Time, resumed bool) *AttemptResponse {
	return &AttemptResponse{
		Attempt:          attempt,
		RemainingSeconds: timing.RemainingForAttempt(quiz, attempt, now),
		Deadline:         timing.Deadline(quiz, attempt),
		Resumed:          resumed,
	}
}

// verdictsHidden reports whether caller sees the attempt only as its student
// on a quiz that does not allow review
func verdictsHidden(quiz *models.Quiz, attempt *models.Attempt, caller models.Principal) bool {
	return !quiz.AllowReview && attempt.StudentID == caller.UserID && !caller.IsAdmin() && !quiz.OwnedBy(caller.UserID)
}

func hideVerdicts(attempt *models.Attempt) {
	for i := range attempt.Answers {
		attempt.Answers[i].IsCorrect = nil
		attempt.Answers[i].Points = nil
		attempt.Answers[i].GradedBy = nil
		attempt.Answers[i].GradedAt = nil
	}
}
