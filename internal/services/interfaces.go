package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

// ===== RESPONSE DTOs =====

// AttemptResponse is an attempt plus the server-computed clock state
type AttemptResponse struct {
	*models.Attempt
	RemainingSeconds int       `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline"`
	Resumed          bool      `json:"resumed,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*models.Attempt `json:"attempts"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// TimeRemainingResponse lets a client resync its local countdown
type TimeRemainingResponse struct {
	AttemptID        uint      `json:"attempt_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline"`
	IsSubmitted      bool      `json:"is_submitted"`
	ServerTime       time.Time `json:"server_time"`
}

type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ===== SERVICE INTERFACES =====

// QuizService covers the authoring side the attempt engine reads from
type QuizService interface {
	CreateSubject(ctx context.Context, req *validator.CreateSubjectRequest, caller models.Principal) (*models.Subject, error)
	Enroll(ctx context.Context, subjectID uint, req *validator.EnrollRequest, caller models.Principal) (*models.Enrollment, error)
	CreateQuiz(ctx context.Context, req *validator.CreateQuizRequest, caller models.Principal) (*models.Quiz, error)
	GetQuiz(ctx context.Context, quizID uint, caller models.Principal) (*models.Quiz, error)
}

// AttemptManager owns the attempt lifecycle
type AttemptManager interface {
	StartAttempt(ctx context.Context, quizID uint, student models.Principal) (*AttemptResponse, error)
	FinalizeAttempt(ctx context.Context, attemptID uint, clientRemainingSeconds *int, student models.Principal) (*AttemptResponse, error)
	GetAttempt(ctx context.Context, attemptID uint, caller models.Principal) (*AttemptResponse, error)
	TimeRemaining(ctx context.Context, attemptID uint, caller models.Principal) (*TimeRemainingResponse, error)
	ListAttempts(ctx context.Context, quizID uint, filters repositories.AttemptFilters, grader models.Principal) (*AttemptListResponse, error)
}

// AnswerStore captures answers while an attempt is open
type AnswerStore interface {
	UpsertAnswer(ctx context.Context, attemptID, questionID uint, req *validator.UpsertAnswerRequest, student models.Principal) (*models.Answer, error)
}

// ScoreAggregator materializes the gated attempt score
type ScoreAggregator interface {
	// Recompute updates attempt.Score from the answers visible through repo,
	// which is usually a transaction.
	Recompute(ctx context.Context, repo repositories.Repository, attempt *models.Attempt) error
	// RecomputeAttempt rescores a submitted attempt for the quiz owner or an admin.
	RecomputeAttempt(ctx context.Context, attemptID uint, grader models.Principal) (*models.Attempt, error)
}

// CorrectionReconciler is the grader override path
type CorrectionReconciler interface {
	ApplyCorrection(ctx context.Context, answerID uint, req *validator.CorrectionRequest, grader models.Principal) (*models.Answer, error)
}

type ExportService interface {
	ExportAttempts(ctx context.Context, quizID uint, grader models.Principal) (*ExportFile, error)
}

// ServiceManager wires services together and owns background work
type ServiceManager interface {
	Quiz() QuizService
	Attempt() AttemptManager
	Answer() AnswerStore
	Score() ScoreAggregator
	Correction() CorrectionReconciler
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
