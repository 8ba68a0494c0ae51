package repositories

import (
	"context"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// UserRepository resolves principals; the identity provider owns user data.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
