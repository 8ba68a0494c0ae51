package validator

import (
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// ===== COURSE STRUCTURE =====

type CreateSubjectRequest struct {
	Name      string `json:"name" validate:"required,not_blank,max=200"`
	TeacherID string `json:"teacher_id" validate:"omitempty,max=255"`
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required,not_blank,max=255"`
}

// ===== QUIZ DEFINITION =====

type CreateQuizRequest struct {
	SubjectID        uint              `json:"subject_id" validate:"required"`
	Title            string            `json:"title" validate:"required,not_blank,max=200"`
	TimeLimitMinutes int               `json:"time_limit_minutes" validate:"required,min=1"`
	StartAt          time.Time         `json:"start_at" validate:"required"`
	EndAt            time.Time         `json:"end_at" validate:"required,gtfield=StartAt"`
	AllowReview      bool              `json:"allow_review"`
	AllowRetries     bool              `json:"allow_retries"`
	Questions        []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type QuestionRequest struct {
	Statement         string              `json:"statement" validate:"required,not_blank"`
	Type              models.QuestionType `json:"type" validate:"required,question_type"`
	HasAutoCorrection bool                `json:"has_auto_correction"`
	Points            float64             `json:"points" validate:"gte=0"`
	Order             int                 `json:"order" validate:"gte=0"`
	CorrectTextAnswer *string             `json:"correct_text_answer"`
	Options           []OptionRequest     `json:"options" validate:"dive"`
}

type OptionRequest struct {
	Text      string `json:"text" validate:"required,not_blank"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"gte=0"`
}

// ===== ATTEMPTS =====

// UpsertAnswerRequest carries the full answer payload; it replaces what was stored
type UpsertAnswerRequest struct {
	Text              *string `json:"text"`
	SelectedOptionIDs []uint  `json:"selected_option_ids"`
}

type FinalizeAttemptRequest struct {
	TimeRemainingSeconds *int `json:"time_remaining_seconds"`
}

// CorrectionRequest is a grader's verdict on one answer
type CorrectionRequest struct {
	IsCorrect bool     `json:"is_correct"`
	Points    *float64 `json:"points" validate:"required,gte=0"`
}

type ListAttemptsRequest struct {
	IsSubmitted *bool      `form:"is_submitted" json:"is_submitted"`
	StudentID   *string    `form:"student_id" json:"student_id"`
	DateFrom    *time.Time `form:"date_from" json:"date_from"`
	DateTo      *time.Time `form:"date_to" json:"date_to"`
	Limit       int        `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset      int        `form:"offset" json:"offset" validate:"omitempty,min=0"`
	SortBy      string     `form:"sort_by" json:"sort_by" validate:"omitempty,oneof=started_at submitted_at score id"`
	SortOrder   string     `form:"sort_order" json:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}
