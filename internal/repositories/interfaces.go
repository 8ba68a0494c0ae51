package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	IsSubmitted *bool      `json:"is_submitted"`
	StudentID   *string    `json:"student_id"`
	DateFrom    *time.Time `json:"date_from"`
	DateTo      *time.Time `json:"date_to"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
	SortBy      string     `json:"sort_by"`    // "started_at", "submitted_at", "score"
	SortOrder   string     `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

type SubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetByID(ctx context.Context, id uint) (*models.Subject, error)
}

// EnrollmentRepository answers the "is this student entitled to this subject" question.
type EnrollmentRepository interface {
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	HasAccess(ctx context.Context, subjectID uint, studentID string) (bool, error)
}

type QuizRepository interface {
	// Create stores the quiz together with its questions and options.
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	// GetByIDWithQuestions loads questions and options ordered by position.
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error)
}

type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Question, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForUpdate locks the row exclusively until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForShare locks the row against concurrent finalization while
	// still allowing other shared holders.
	GetByIDForShare(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error

	GetOpenAttempt(ctx context.Context, quizID uint, studentID string) (*models.Attempt, error)
	HasSubmittedAttempt(ctx context.Context, quizID uint, studentID string) (bool, error)
	ListByQuiz(ctx context.Context, quizID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
	// ListOverdue returns open attempts whose time limit or quiz window has run out.
	ListOverdue(ctx context.Context, now time.Time, quizID *uint, limit int) ([]*models.Attempt, error)
}

type AnswerRepository interface {
	// Upsert inserts or replaces the answer for (attempt, question).
	Upsert(ctx context.Context, answer *models.Answer) error
	GetByID(ctx context.Context, id uint) (*models.Answer, error)
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.Answer, error)
	UpdateGrade(ctx context.Context, id uint, grade AnswerGrade) error
}

// ===== SHARED HELPER STRUCTS =====

type AnswerGrade struct {
	Points    float64   `json:"points"`
	IsCorrect bool      `json:"is_correct"`
	GraderID  string    `json:"grader_id"`
	GradedAt  time.Time `json:"graded_at"`
}
