package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// ValidateQuizCreate runs struct tags and then the cross-field rules on the
// question set.
func (v *Validator) ValidateQuizCreate(req *CreateQuizRequest) error {
	var errs ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}
	errs = append(errs, validateQuestions(req.Questions)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateQuestions(questions []QuestionRequest) ValidationErrors {
	var errs ValidationErrors

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}

		switch q.Type {
		case models.QuestionText:
			if len(q.Options) > 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "text questions cannot have options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
			if q.HasAutoCorrection && (q.CorrectTextAnswer == nil || strings.TrimSpace(*q.CorrectTextAnswer) == "") {
				errs = append(errs, ValidationError{
					Field:   field + ".correct_text_answer",
					Message: "is required for auto-corrected text questions",
					Rule:    "business_logic",
				})
			}
		case models.QuestionSingleChoice:
			if len(q.Options) < 2 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "must have at least 2 options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
			if correct != 1 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "single choice questions need exactly one correct option",
					Value:   correct,
					Rule:    "business_logic",
				})
			}
		case models.QuestionMultipleChoice:
			if len(q.Options) < 2 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "must have at least 2 options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
			if correct < 1 {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "multiple choice questions need at least one correct option",
					Value:   correct,
					Rule:    "business_logic",
				})
			}
		}
	}

	return errs
}
