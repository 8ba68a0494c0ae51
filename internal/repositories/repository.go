package repositories

import "context"

// Repository aggregates every repository the engine needs. Implementations hand a
// transaction-scoped Repository to WithTransaction callbacks; repositories obtained
// from it share that transaction.
type Repository interface {
	// Course structure
	Subject() SubjectRepository
	Enrollment() EnrollmentRepository

	// Quiz definitions
	Quiz() QuizRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// User domain (read-only, resolved from the identity provider)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
