// Package grading evaluates answers against question definitions and folds
// answer points into an attempt score.
package grading

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// Payload is what a student submits for one question.
type Payload struct {
	Text              *string
	SelectedOptionIDs []uint
}

// Verdict is the outcome of evaluating one answer. Points is nil when a human must decide.
type Verdict struct {
	IsCorrect         *bool
	Points            *float64
	NeedsManualReview bool
}

// Rule grades one question kind. Each question type maps to exactly one Rule value.
type Rule interface {
	Evaluate(p Payload) Verdict
}

// TextRule compares normalized free text to a reference answer.
type TextRule struct {
	Points    float64
	Reference string
}

// SingleChoiceRule is correct when exactly the one correct option is selected.
type SingleChoiceRule struct {
	Points  float64
	Correct uint
}

// MultipleChoiceRule is correct only on an exact set match.
type MultipleChoiceRule struct {
	Points  float64
	Correct []uint
}

// ManualRule always defers to a grader.
type ManualRule struct{}

// RuleFor builds the rule for a question. Questions without auto-correction,
// and TEXT questions without a reference answer, get ManualRule.
func RuleFor(q *models.Question) (Rule, error) {
	if !q.HasAutoCorrection {
		return ManualRule{}, nil
	}

	switch q.Type {
	case models.QuestionText:
		if q.CorrectTextAnswer == nil || normalizeText(*q.CorrectTextAnswer) == "" {
			return ManualRule{}, nil
		}
		return TextRule{Points: q.Points, Reference: *q.CorrectTextAnswer}, nil
	case models.QuestionSingleChoice:
		correct := q.CorrectOptionIDs()
		if len(correct) != 1 {
			return nil, fmt.Errorf("single choice question %d has %d correct options", q.ID, len(correct))
		}
		return SingleChoiceRule{Points: q.Points, Correct: correct[0]}, nil
	case models.QuestionMultipleChoice:
		return MultipleChoiceRule{Points: q.Points, Correct: q.CorrectOptionIDs()}, nil
	default:
		return nil, fmt.Errorf("unsupported question type %q", q.Type)
	}
}

// Evaluate grades p against q.
func Evaluate(q *models.Question, p Payload) (Verdict, error) {
	rule, err := RuleFor(q)
	if err != nil {
		return Verdict{}, err
	}
	return rule.Evaluate(p), nil
}

func (r TextRule) Evaluate(p Payload) Verdict {
	given := ""
	if p.Text != nil {
		given = *p.Text
	}
	return scored(normalizeText(given) == normalizeText(r.Reference), r.Points)
}

func (r SingleChoiceRule) Evaluate(p Payload) Verdict {
	selected := NormalizeSelection(p.SelectedOptionIDs)
	return scored(len(selected) == 1 && selected[0] == r.Correct, r.Points)
}

func (r MultipleChoiceRule) Evaluate(p Payload) Verdict {
	return scored(slices.Equal(NormalizeSelection(p.SelectedOptionIDs), NormalizeSelection(r.Correct)), r.Points)
}

func (ManualRule) Evaluate(Payload) Verdict {
	return Verdict{NeedsManualReview: true}
}

// NormalizeSelection returns the selection sorted and without duplicates.
func NormalizeSelection(ids []uint) []uint {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func scored(correct bool, points float64) Verdict {
	awarded := 0.0
	if correct {
		awarded = points
	}
	return Verdict{IsCorrect: &correct, Points: &awarded}
}
