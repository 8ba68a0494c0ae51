package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptEndReason string

const (
	EndReasonSubmitted AttemptEndReason = "submitted"
	EndReasonTimeOut   AttemptEndReason = "time_out"
)

// Attempt is one student's timed run at a quiz. At most one attempt per (quiz, student)
// may be open; the partial unique index enforces it.
type Attempt struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	QuizID    uint   `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_attempt_open,where:is_submitted = false"`
	StudentID string `json:"student_id" gorm:"not null;size:255;index;uniqueIndex:idx_attempt_open,where:is_submitted = false"`

	// Timing
	StartedAt            time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt          *time.Time `json:"submitted_at"`
	IsSubmitted          bool       `json:"is_submitted" gorm:"not null;default:false;index"`
	TimeRemainingSeconds *int       `json:"time_remaining_seconds"` // client-reported, audit only

	// Scoring; nil until every answer carries points
	Score *float64 `json:"score" gorm:"type:numeric"`

	EndReason *AttemptEndReason `json:"end_reason" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_answer_attempt_question"`

	// Answer content, replaced wholesale on every upsert
	Text              *string                   `json:"text" gorm:"type:text"`
	SelectedOptionIDs datatypes.JSONSlice[uint] `json:"selected_option_ids" gorm:"type:jsonb"`

	// Grading
	IsCorrect         *bool      `json:"is_correct"`
	Points            *float64   `json:"points" gorm:"type:numeric"`
	NeedsManualReview bool       `json:"needs_manual_review" gorm:"not null;default:false"`
	GradedBy          *string    `json:"graded_by" gorm:"size:255"`
	GradedAt          *time.Time `json:"graded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (Answer) TableName() string {
	return "answers"
}

// IsGraded reports whether the answer carries points.
func (a *Answer) IsGraded() bool {
	return a.Points != nil
}
