package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/cache"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the aggregate Repository interface.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	category  repositories.CategoryRepository
	exam      repositories.ExamRepository
	topic     repositories.TopicRepository
	question  repositories.QuestionRepository
	session   repositories.SessionRepository
	bookmark  repositories.BookmarkRepository
	user      repositories.UserRepository
	dashboard repositories.DashboardRepository
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository creates the aggregate repository with all
// sub-repositories wired to one database handle.
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
	}
	repo.wireSubRepos(config.DB)

	// User identities live in Casdoor
	repo.user = casdoor.NewUserCasdoor(config.CasdoorConfig, config.RedisClient)

	return repo
}

// wireSubRepos binds every Postgres-backed sub-repository to the given
// handle, which is either the pooled connection or one transaction.
func (r *PostgreSQLRepository) wireSubRepos(db *gorm.DB) {
	r.category = NewCategoryPostgreSQL(db, r.cacheManager)
	r.exam = NewExamPostgreSQL(db, r.cacheManager)
	r.topic = NewTopicPostgreSQL(db)
	r.question = NewQuestionPostgreSQL(db, r.cacheManager)
	r.session = NewSessionPostgreSQL(db)
	r.bookmark = NewBookmarkPostgreSQL(db)
	r.dashboard = NewDashboardRepository(db, r.cacheManager)
}

func (r *PostgreSQLRepository) Category() repositories.CategoryRepository   { return r.category }
func (r *PostgreSQLRepository) Exam() repositories.ExamRepository           { return r.exam }
func (r *PostgreSQLRepository) Topic() repositories.TopicRepository         { return r.topic }
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository   { return r.question }
func (r *PostgreSQLRepository) Session() repositories.SessionRepository     { return r.session }
func (r *PostgreSQLRepository) Bookmark() repositories.BookmarkRepository   { return r.bookmark }
func (r *PostgreSQLRepository) User() repositories.UserRepository           { return r.user }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction executes fn with every sub-repository bound to a single
// transaction. This is the isolation boundary the import pipeline relies on:
// one transaction per imported file.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
		}
		txRepo.wireSubRepos(tx)

		// User repository is external and needs no transaction
		txRepo.user = r.user

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface.
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize validates connections and builds the repository.
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
