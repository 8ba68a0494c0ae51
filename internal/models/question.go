package models

import (
	"time"
)

type QuestionType string

const (
	QuestionText           QuestionType = "TEXT"
	QuestionSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionText, QuestionSingleChoice, QuestionMultipleChoice:
		return true
	}
	return false
}

func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice
}

type Question struct {
	ID                uint         `json:"id" gorm:"primaryKey"`
	QuizID            uint         `json:"quiz_id" gorm:"not null;index"`
	Statement         string       `json:"statement" gorm:"type:text;not null"`
	Type              QuestionType `json:"type" gorm:"not null;size:32"`
	HasAutoCorrection bool         `json:"has_auto_correction" gorm:"not null;default:false"`
	Points            float64      `json:"points" gorm:"type:numeric;not null;default:0"`
	Order             int          `json:"order" gorm:"column:position;not null;default:0"`

	// Only meaningful for TEXT questions with auto-correction
	CorrectTextAnswer *string `json:"correct_text_answer,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct,omitempty" gorm:"not null;default:false"`
	Order      int    `json:"order" gorm:"column:position;not null;default:0"`
}

func (Question) TableName() string {
	return "questions"
}

func (Option) TableName() string {
	return "options"
}

// HasOption reports whether optionID belongs to the question.
func (q *Question) HasOption(optionID uint) bool {
	for _, option := range q.Options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}

func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, option := range q.Options {
		if option.IsCorrect {
			ids = append(ids, option.ID)
		}
	}
	return ids
}
