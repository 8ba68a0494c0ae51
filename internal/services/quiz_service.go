package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== SUBJECTS & ENROLLMENT =====

func (s *quizService) CreateSubject(ctx context.Context, req *validator.CreateSubjectRequest, caller models.Principal) (*models.Subject, error) {
	if !caller.CanGrade() {
		return nil, NewPermissionError(caller.UserID, 0, "subject", "create", "only teachers and admins can create subjects")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	teacherID := caller.UserID
	if req.TeacherID != "" && req.TeacherID != caller.UserID {
		if !caller.IsAdmin() {
			return nil, NewPermissionError(caller.UserID, 0, "subject", "create", "only admins can assign another teacher")
		}
		teacherID = req.TeacherID
	}

	subject := &models.Subject{Name: req.Name, TeacherID: teacherID}
	if err := s.repo.Subject().Create(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}

	s.logger.Info("Subject created", "subject_id", subject.ID, "teacher_id", teacherID)
	return subject, nil
}

func (s *quizService) Enroll(ctx context.Context, subjectID uint, req *validator.EnrollRequest, caller models.Principal) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	subject, err := s.repo.Subject().GetByID(ctx, subjectID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	if !caller.IsAdmin() && subject.TeacherID != caller.UserID {
		return nil, NewPermissionError(caller.UserID, subjectID, "subject", "enroll", "not the subject's teacher")
	}

	enrollment := &models.Enrollment{SubjectID: subjectID, StudentID: req.StudentID}
	if err := s.repo.Enrollment().Enroll(ctx, enrollment); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to enroll student: %w", err)
	}

	s.logger.Info("Student enrolled", "subject_id", subjectID, "student_id", req.StudentID)
	return enrollment, nil
}

// ===== QUIZZES =====

func (s *quizService) CreateQuiz(ctx context.Context, req *validator.CreateQuizRequest, caller models.Principal) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "subject_id", req.SubjectID, "creator_id", caller.UserID)

	if !caller.CanGrade() {
		return nil, NewPermissionError(caller.UserID, req.SubjectID, "quiz", "create", "only teachers and admins can author quizzes")
	}
	if err := s.validator.ValidateQuizCreate(req); err != nil {
		return nil, err
	}

	quiz := buildQuiz(req, caller.UserID)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		subject, err := tx.Subject().GetByID(ctx, req.SubjectID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSubjectNotFound
			}
			return fmt.Errorf("failed to get subject: %w", err)
		}
		if !caller.IsAdmin() && subject.TeacherID != caller.UserID {
			return NewPermissionError(caller.UserID, subject.ID, "quiz", "create", "not the subject's teacher")
		}

		if err := tx.Quiz().Create(ctx, quiz); err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz created",
		"quiz_id", quiz.ID,
		"subject_id", quiz.SubjectID,
		"questions", len(quiz.Questions))

	publish(ctx, s.publisher, s.logger, events.NewQuizPublishedEvent(quiz))

	return quiz, nil
}

// GetQuiz strips answer keys for anyone who cannot grade the quiz
func (s *quizService) GetQuiz(ctx context.Context, quizID uint, caller models.Principal) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if caller.IsAdmin() || quiz.OwnedBy(caller.UserID) {
		return quiz, nil
	}

	if caller.Role == models.RoleStudent {
		subject, err := s.repo.Subject().GetByID(ctx, quiz.SubjectID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrSubjectNotFound
			}
			return nil, fmt.Errorf("failed to get subject: %w", err)
		}
		enrolled, err := s.repo.Enrollment().HasAccess(ctx, subject.ID, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, NewPermissionError(caller.UserID, quizID, "quiz", "view", "not enrolled in subject")
		}
	}

	return stripAnswerKey(quiz), nil
}

func buildQuiz(req *validator.CreateQuizRequest, creatorID string) *models.Quiz {
	quiz := &models.Quiz{
		SubjectID:        req.SubjectID,
		Title:            req.Title,
		TimeLimitMinutes: req.TimeLimitMinutes,
		StartAt:          req.StartAt.UTC(),
		EndAt:            req.EndAt.UTC(),
		AllowReview:      req.AllowReview,
		AllowRetries:     req.AllowRetries,
		CreatedBy:        creatorID,
		Questions:        make([]models.Question, 0, len(req.Questions)),
	}

	for i, q := range req.Questions {
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		question := models.Question{
			Statement:         q.Statement,
			Type:              q.Type,
			HasAutoCorrection: q.HasAutoCorrection,
			Points:            q.Points,
			Order:             order,
			CorrectTextAnswer: q.CorrectTextAnswer,
		}
		for j, o := range q.Options {
			optionOrder := o.Order
			if optionOrder == 0 {
				optionOrder = j + 1
			}
			question.Options = append(question.Options, models.Option{
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
				Order:     optionOrder,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	return quiz
}

func stripAnswerKey(quiz *models.Quiz) *models.Quiz {
	out := *quiz
	out.Questions = make([]models.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectTextAnswer = nil
		options := make([]models.Option, len(q.Options))
		for j, o := range q.Options {
			o.IsCorrect = false
			options[j] = o
		}
		q.Options = options
		out.Questions[i] = q
	}
	return &out
}
