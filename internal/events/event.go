package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

const (
	EventSource  = "quiz-attempt-service"
	EventVersion = "1.0"
)

type EventType string

const (
	QuizPublished    EventType = "quiz.published"
	AttemptFinalized EventType = "attempt.finalized"
)

// Event is the envelope every published message carries
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type QuizPublishedData struct {
	QuizID           uint      `json:"quiz_id"`
	SubjectID        uint      `json:"subject_id"`
	Title            string    `json:"title"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	QuestionCount    int       `json:"question_count"`
	CreatedBy        string    `json:"created_by"`
}

func NewQuizPublishedEvent(quiz *models.Quiz) *Event {
	return NewEvent(QuizPublished, QuizPublishedData{
		QuizID:           quiz.ID,
		SubjectID:        quiz.SubjectID,
		Title:            quiz.Title,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		StartAt:          quiz.StartAt,
		EndAt:            quiz.EndAt,
		QuestionCount:    len(quiz.Questions),
		CreatedBy:        quiz.CreatedBy,
	})
}

type AttemptFinalizedData struct {
	AttemptID   uint                     `json:"attempt_id"`
	QuizID      uint                     `json:"quiz_id"`
	StudentID   string                   `json:"student_id"`
	EndReason   *models.AttemptEndReason `json:"end_reason"`
	Score       *float64                 `json:"score"`
	SubmittedAt *time.Time               `json:"submitted_at"`
}

func NewAttemptFinalizedEvent(attempt *models.Attempt) *Event {
	return NewEvent(AttemptFinalized, AttemptFinalizedData{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		StudentID:   attempt.StudentID,
		EndReason:   attempt.EndReason,
		Score:       attempt.Score,
		SubmittedAt: attempt.SubmittedAt,
	})
}
