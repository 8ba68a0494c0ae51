package grading

import (
	"testing"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func choiceQuestion(t models.QuestionType, correct ...uint) *models.Question {
	q := &models.Question{ID: 1, Type: t, HasAutoCorrection: true, Points: 5}
	isCorrect := map[uint]bool{}
	for _, id := range correct {
		isCorrect[id] = true
	}
	for _, id := range []uint{10, 11, 12} {
		q.Options = append(q.Options, models.Option{ID: id, QuestionID: 1, IsCorrect: isCorrect[id]})
	}
	return q
}

func assertVerdict(t *testing.T, got Verdict, wantCorrect bool, wantPoints float64) {
	t.Helper()
	if got.NeedsManualReview {
		t.Fatalf("expected auto-graded verdict, got manual review")
	}
	if got.IsCorrect == nil || *got.IsCorrect != wantCorrect {
		t.Errorf("IsCorrect = %v, want %v", got.IsCorrect, wantCorrect)
	}
	if got.Points == nil || *got.Points != wantPoints {
		t.Errorf("Points = %v, want %v", got.Points, wantPoints)
	}
}

func TestEvaluate_MultipleChoiceExactSet(t *testing.T) {
	q := choiceQuestion(models.QuestionMultipleChoice, 10, 11)

	tests := []struct {
		name     string
		selected []uint
		correct  bool
		points   float64
	}{
		{name: "exact set", selected: []uint{10, 11}, correct: true, points: 5},
		{name: "exact set reordered with duplicate", selected: []uint{11, 10, 11}, correct: true, points: 5},
		{name: "omission", selected: []uint{10}, correct: false, points: 0},
		{name: "extra option", selected: []uint{10, 11, 12}, correct: false, points: 0},
		{name: "nothing selected", selected: nil, correct: false, points: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(q, Payload{SelectedOptionIDs: tt.selected})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			assertVerdict(t, got, tt.correct, tt.points)
		})
	}
}

func TestEvaluate_SingleChoice(t *testing.T) {
	q := choiceQuestion(models.QuestionSingleChoice, 11)

	tests := []struct {
		name     string
		selected []uint
		correct  bool
		points   float64
	}{
		{name: "correct option", selected: []uint{11}, correct: true, points: 5},
		{name: "wrong option", selected: []uint{12}, correct: false, points: 0},
		{name: "two options including correct", selected: []uint{11, 12}, correct: false, points: 0},
		{name: "nothing selected", selected: []uint{}, correct: false, points: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(q, Payload{SelectedOptionIDs: tt.selected})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			assertVerdict(t, got, tt.correct, tt.points)
		})
	}
}

func TestEvaluate_SingleChoiceWithoutUniqueCorrectOption(t *testing.T) {
	q := choiceQuestion(models.QuestionSingleChoice, 10, 11)
	if _, err := Evaluate(q, Payload{SelectedOptionIDs: []uint{10}}); err == nil {
		t.Fatal("expected error for ambiguous single choice definition")
	}
}

func TestEvaluate_Text(t *testing.T) {
	q := &models.Question{ID: 2, Type: models.QuestionText, HasAutoCorrection: true, Points: 3, CorrectTextAnswer: strPtr("  Paris ")}

	tests := []struct {
		name    string
		text    *string
		correct bool
		points  float64
	}{
		{name: "case and space insensitive", text: strPtr("paris"), correct: true, points: 3},
		{name: "different answer", text: strPtr("Lyon"), correct: false, points: 0},
		{name: "missing text", text: nil, correct: false, points: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(q, Payload{Text: tt.text})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			assertVerdict(t, got, tt.correct, tt.points)
		})
	}
}

func TestEvaluate_ManualReview(t *testing.T) {
	tests := []struct {
		name string
		q    *models.Question
	}{
		{name: "text without reference", q: &models.Question{Type: models.QuestionText, HasAutoCorrection: true, Points: 5}},
		{name: "text with blank reference", q: &models.Question{Type: models.QuestionText, HasAutoCorrection: true, CorrectTextAnswer: strPtr("   ")}},
		{name: "auto-correction disabled", q: choiceQuestion(models.QuestionSingleChoice, 10)},
	}
	tests[2].q.HasAutoCorrection = false

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.q, Payload{Text: strPtr("anything"), SelectedOptionIDs: []uint{10}})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !got.NeedsManualReview || got.Points != nil || got.IsCorrect != nil {
				t.Errorf("expected manual review verdict, got %+v", got)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		points []*float64
		want   *float64
	}{
		{name: "no answers", points: nil, want: floatPtr(0)},
		{name: "all graded", points: []*float64{floatPtr(5), floatPtr(5)}, want: floatPtr(10)},
		{name: "one ungraded", points: []*float64{floatPtr(5), nil}, want: nil},
		{name: "decimal fractions sum exactly", points: []*float64{floatPtr(0.1), floatPtr(0.2)}, want: floatPtr(0.3)},
		{name: "sub-cent points are kept", points: []*float64{floatPtr(0.125), floatPtr(0.125), floatPtr(0.125)}, want: floatPtr(0.375)},
		{name: "manual points with three decimals", points: []*float64{floatPtr(5), floatPtr(2.345)}, want: floatPtr(7.345)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.points)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Aggregate() = %v, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("Aggregate() = nil, want %v", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("Aggregate() = %v, want %v", *got, *tt.want)
			}
		})
	}
}
