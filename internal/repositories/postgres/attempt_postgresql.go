package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

// ===== ATTEMPTS =====

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return translateError(a.db.WithContext(ctx).Create(attempt).Error, "failed to create attempt")
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	return a.get(ctx, a.db.WithContext(ctx), id)
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return a.get(ctx, a.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (a *AttemptPostgreSQL) GetByIDForShare(ctx context.Context, id uint) (*models.Attempt, error) {
	return a.get(ctx, a.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error) {
	query := a.db.WithContext(ctx).Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_id ASC")
	})
	return a.get(ctx, query, id)
}

func (a *AttemptPostgreSQL) get(_ context.Context, query *gorm.DB, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := query.First(&attempt, id).Error; err != nil {
		return nil, translateError(err, "attempt %d", id)
	}
	return &attempt, nil
}

// Update saves the attempt row only; answers are written through AnswerRepository
func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	err := a.db.WithContext(ctx).Omit(clause.Associations).Save(attempt).Error
	return translateError(err, "failed to update attempt %d", attempt.ID)
}

func (a *AttemptPostgreSQL) GetOpenAttempt(ctx context.Context, quizID uint, studentID string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND is_submitted = ?", quizID, studentID, false).
		First(&attempt).Error; err != nil {
		return nil, translateError(err, "open attempt for quiz %d", quizID)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) HasSubmittedAttempt(ctx context.Context, quizID uint, studentID string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("quiz_id = ? AND student_id = ? AND is_submitted = ?", quizID, studentID, true).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, "failed to count submitted attempts")
	}
	return count > 0, nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, quizID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("quiz_id = ?", quizID)
	query = ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "failed to count attempts")
	}

	// then apply pagination and sorting
	query = ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, translateError(err, "failed to list attempts")
	}

	return attempts, total, nil
}

// ListOverdue finds open attempts past min(started_at + time limit, quiz end)
func (a *AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, quizID *uint, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt

	query := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("attempts.*").
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id").
		Where("attempts.is_submitted = ?", false).
		Where("(attempts.started_at + make_interval(mins => quizzes.time_limit_minutes) <= ? OR quizzes.end_at <= ?)", now, now)

	if quizID != nil {
		query = query.Where("attempts.quiz_id = ?", *quizID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Order("attempts.started_at ASC").Find(&attempts).Error; err != nil {
		return nil, translateError(err, "failed to list overdue attempts")
	}

	return attempts, nil
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert relies on idx_answer_attempt_question so concurrent writers never
// produce a second row for the same question.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.Answer) error {
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"text", "selected_option_ids", "is_correct", "points",
				"needs_manual_review", "graded_by", "graded_at", "updated_at",
			}),
		}).
		Create(answer).Error
	if err != nil {
		return translateError(err, "failed to upsert answer")
	}

	// reload so created_at reflects the first write
	stored, err := a.GetByAttemptAndQuestion(ctx, answer.AttemptID, answer.QuestionID)
	if err != nil {
		return err
	}
	*answer = *stored

	return nil
}

func (a *AnswerPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Answer, error) {
	var answer models.Answer
	if err := a.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, translateError(err, "answer %d", id)
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, translateError(err, "failed to list answers")
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.Answer, error) {
	var answer models.Answer
	err := a.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, translateError(err, "answer for question %d", questionID)
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) UpdateGrade(ctx context.Context, id uint, grade repositories.AnswerGrade) error {
	result := a.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"points":              grade.Points,
			"is_correct":          grade.IsCorrect,
			"needs_manual_review": false,
			"graded_by":           grade.GraderID,
			"graded_at":           grade.GradedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "failed to grade answer %d", id)
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "answer %d", id)
	}
	return nil
}
