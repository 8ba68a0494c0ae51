package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/cache"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// ===== SUBJECTS =====

type SubjectPostgreSQL struct {
	db *gorm.DB
}

func NewSubjectPostgreSQL(db *gorm.DB) repositories.SubjectRepository {
	return &SubjectPostgreSQL{db: db}
}

func (s *SubjectPostgreSQL) Create(ctx context.Context, subject *models.Subject) error {
	return translateError(s.db.WithContext(ctx).Create(subject).Error, "failed to create subject")
}

func (s *SubjectPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, translateError(err, "subject %d", id)
	}
	return &subject, nil
}

// ===== ENROLLMENTS =====

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db, cacheManager: cacheManager}
}

func (e *EnrollmentPostgreSQL) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	if err := e.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return translateError(err, "failed to enroll student %s", enrollment.StudentID)
	}

	cache.SafeDelete(ctx, e.cacheManager.Enrollment, cache.EnrollmentKey(enrollment.SubjectID, enrollment.StudentID))
	return nil
}

// HasAccess checks enrollment with a short-lived cache in front of the table
func (e *EnrollmentPostgreSQL) HasAccess(ctx context.Context, subjectID uint, studentID string) (bool, error) {
	var enrolled bool
	err := e.cacheManager.Enrollment.CacheOrExecute(ctx, cache.EnrollmentKey(subjectID, studentID), &enrolled, cache.EnrollmentCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := e.db.WithContext(ctx).
			Model(&models.Enrollment{}).
			Where("subject_id = ? AND student_id = ?", subjectID, studentID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		return count > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return enrolled, nil
}

// ===== QUIZZES =====

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db, cacheManager: cacheManager}
}

// Create stores the quiz graph in one statement batch; gorm inserts the
// associations after the parent row.
func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := q.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return translateError(err, "failed to create quiz")
	}

	cache.InvalidateQuizCache(ctx, q.cacheManager, quiz.ID)
	return nil
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cache.QuizKey(id), &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := q.db.WithContext(ctx).First(&dbQuiz, id).Error; err != nil {
			return nil, translateError(err, "quiz %d", id)
		}
		return &dbQuiz, nil
	})
	if err != nil {
		return nil, err
	}

	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cache.QuizDetailsKey(id), &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		var dbQuiz models.Quiz
		if err := q.db.WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC, id ASC")
			}).
			Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC, id ASC")
			}).
			First(&dbQuiz, id).Error; err != nil {
			return nil, translateError(err, "quiz %d", id)
		}
		return &dbQuiz, nil
	})
	if err != nil {
		return nil, err
	}

	return &quiz, nil
}

// ===== QUESTIONS =====

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&question, id).Error; err != nil {
		return nil, translateError(err, "question %d", id)
	}
	return &question, nil
}
