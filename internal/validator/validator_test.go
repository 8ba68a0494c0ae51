package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

func validQuiz() *CreateQuizRequest {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return &CreateQuizRequest{
		SubjectID:        1,
		Title:            "Algebra",
		TimeLimitMinutes: 20,
		StartAt:          start,
		EndAt:            start.Add(time.Hour),
		Questions: []QuestionRequest{
			{Statement: "2+2", Type: models.QuestionSingleChoice, HasAutoCorrection: true, Points: 1,
				Options: []OptionRequest{{Text: "4", IsCorrect: true}, {Text: "5"}}},
			{Statement: "Explain", Type: models.QuestionText, Points: 5},
		},
	}
}

func TestValidateQuizCreate(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		if err := v.ValidateQuizCreate(validQuiz()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(r *CreateQuizRequest)
		field  string
	}{
		{"end before start", func(r *CreateQuizRequest) { r.EndAt = r.StartAt }, "end_at"},
		{"zero time limit", func(r *CreateQuizRequest) { r.TimeLimitMinutes = 0 }, "time_limit_minutes"},
		{"negative points", func(r *CreateQuizRequest) { r.Questions[1].Points = -1 }, "questions[1].points"},
		{"unknown type", func(r *CreateQuizRequest) { r.Questions[1].Type = "ESSAY" }, "questions[1].type"},
		{"two correct single choice", func(r *CreateQuizRequest) { r.Questions[0].Options[1].IsCorrect = true }, "questions[0].options"},
		{"text with options", func(r *CreateQuizRequest) {
			r.Questions[1].Options = []OptionRequest{{Text: "x"}}
		}, "questions[1].options"},
		{"auto text without reference", func(r *CreateQuizRequest) { r.Questions[1].HasAutoCorrection = true }, "questions[1].correct_text_answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validQuiz()
			tt.mutate(req)

			err := v.ValidateQuizCreate(req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, e := range ve {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected failure on %s, got %+v", tt.field, ve)
			}
		})
	}
}

func TestCorrectionRequestRejectsNegativePoints(t *testing.T) {
	v := New()
	points := -0.5
	if err := v.Validate(&CorrectionRequest{Points: &points}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	points = 0
	if err := v.Validate(&CorrectionRequest{Points: &points}); err != nil {
		t.Fatalf("zero points should be accepted: %v", err)
	}
}
