package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/events"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Service-specific configurations
	Catalog  ServiceConfig
	Question ServiceConfig
	Quiz     ServiceConfig
	Import   ServiceConfig

	// Import pipeline settings
	InboxDir string

	// Global settings
	DefaultTimeout time.Duration
}

type ServiceConfig struct {
	Enabled         bool
	CacheEnabled    bool
	CacheTTL        time.Duration
	ValidationLevel ValidationLevel
}

type ValidationLevel int

const (
	ValidationBasic ValidationLevel = iota
	ValidationStrict
	ValidationFull
)

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	catalogService   CatalogService
	questionService  QuestionService
	quizService      QuizService
	dashboardService DashboardService
	importService    ImportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, inboxDir string) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Catalog: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationStrict,
		},
		Question: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationFull,
		},
		Quiz: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        1 * time.Minute,
			ValidationLevel: ValidationStrict,
		},
		Import: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			ValidationLevel: ValidationFull,
		},

		InboxDir:       inboxDir,
		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, publisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.config.Catalog.Enabled {
		sm.catalogService = NewCatalogService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Catalog service initialized")
	}

	if sm.config.Question.Enabled {
		sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Question service initialized")
	}

	if sm.config.Quiz.Enabled {
		sm.quizService = NewQuizService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
		sm.logger.Info("Quiz service initialized")
	}

	sm.dashboardService = NewDashboardService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Dashboard service initialized")

	if sm.config.Import.Enabled {
		sm.importService = NewImportService(sm.repo, sm.logger, sm.publisher, sm.config.InboxDir)
		sm.logger.Info("Import service initialized")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// requireInitialized guards the getters. Grabbing a service off an
// uninitialized or disabled manager is a wiring bug, not a runtime
// condition, so it panics rather than returning an error.
func (sm *serviceManager) requireInitialized(name string, ok bool) {
	if !sm.initialized {
		panic("service manager not initialized")
	}
	if !ok {
		panic(name + " service not enabled or not initialized")
	}
}

func (sm *serviceManager) Catalog() CatalogService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.requireInitialized("catalog", sm.catalogService != nil)
	return sm.catalogService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.requireInitialized("question", sm.questionService != nil)
	return sm.questionService
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.requireInitialized("quiz", sm.quizService != nil)
	return sm.quizService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.requireInitialized("dashboard", sm.dashboardService != nil)
	return sm.dashboardService
}

func (sm *serviceManager) Import() ImportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.requireInitialized("import", sm.importService != nil)
	return sm.importService
}

// HealthCheck verifies the manager and its dependencies are serviceable.
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

// Shutdown releases resources held by the services.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.initialized = false

	sm.logger.Info("Service manager shut down")
	return nil
}
