package models

import (
	"time"
)

type Quiz struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	SubjectID        uint      `json:"subject_id" gorm:"not null;index"`
	Title            string    `json:"title" gorm:"not null;size:200"`
	TimeLimitMinutes int       `json:"time_limit_minutes" gorm:"not null"`
	StartAt          time.Time `json:"start_at" gorm:"not null"`
	EndAt            time.Time `json:"end_at" gorm:"not null;index"`
	AllowReview      bool      `json:"allow_review" gorm:"not null;default:false"`
	AllowRetries     bool      `json:"allow_retries" gorm:"not null;default:false"`

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) TotalPoints() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// OwnedBy reports whether userID authored the quiz.
func (q *Quiz) OwnedBy(userID string) bool {
	return q.CreatedBy == userID
}
