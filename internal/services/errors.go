package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

// Error categories. Handlers map these onto transport status codes.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrWindowClosed     = errors.New("quiz window is closed")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	ErrAlreadyAttempted = errors.New("quiz already attempted and retries are not allowed")
	ErrValidationFailed = validator.ErrValidation
)

// Specific errors wrap their category so errors.Is matches both
var (
	ErrSubjectNotFound  = fmt.Errorf("subject %w", ErrNotFound)
	ErrQuizNotFound     = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrAttemptNotFound  = fmt.Errorf("attempt %w", ErrNotFound)
	ErrAnswerNotFound   = fmt.Errorf("answer %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrAlreadyEnrolled = errors.New("student already enrolled")
)

// PermissionError describes a role or ownership mismatch
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// BusinessRuleError is a request that is well formed but conflicts with policy
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// NewValidationError builds a single-field validation failure
func NewValidationError(field, message string, value interface{}) error {
	return validator.Fail(field, message, value)
}
