package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Clock overrides time.Now for every service; tests pin it
	Clock func() time.Time

	// Expiry sweeper; a zero interval disables it
	SweepInterval time.Duration
	SweepBatch    int
}

// DefaultServiceManagerConfig mirrors the configuration defaults
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		Clock:         time.Now,
		SweepInterval: time.Minute,
		SweepBatch:    100,
	}
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	quizService          QuizService
	attemptManager       AttemptManager
	answerStore          AnswerStore
	scoreAggregator      ScoreAggregator
	correctionReconciler CorrectionReconciler
	exportService        ExportService
	sweeper              *Sweeper

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// Initialize sets up all services and starts the expiry sweeper
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	clock := sm.config.Clock

	sm.scoreAggregator = NewScoreAggregator(sm.repo, sm.logger)
	sm.quizService = NewQuizService(sm.repo, sm.logger, sm.validator, sm.publisher)
	sm.attemptManager = NewAttemptManager(sm.repo, sm.logger, sm.scoreAggregator, sm.publisher, clock)
	sm.answerStore = NewAnswerStore(sm.repo, sm.logger, sm.scoreAggregator, sm.publisher, clock)
	sm.correctionReconciler = NewCorrectionReconciler(sm.repo, sm.logger, sm.validator, sm.scoreAggregator, sm.publisher, clock)
	sm.exportService = NewExportService(sm.repo, sm.attemptManager, sm.logger)
	sm.logger.Info("Services initialized")

	sm.sweeper = NewSweeper(sm.repo, sm.logger, sm.scoreAggregator, sm.publisher, sm.config.SweepInterval, sm.config.SweepBatch, clock)
	sm.sweeper.Start(ctx)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.quizService
}

func (sm *serviceManager) Attempt() AttemptManager {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptManager
}

func (sm *serviceManager) Answer() AnswerStore {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.answerStore
}

func (sm *serviceManager) Score() ScoreAggregator {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.scoreAggregator
}

func (sm *serviceManager) Correction() CorrectionReconciler {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.correctionReconciler
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sweeper != nil {
		if err := sm.sweeper.Stop(ctx); err != nil {
			sm.logger.Error("Failed to stop expiry sweeper", "error", err)
		}
	}

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
