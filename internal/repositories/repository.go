package repositories

import "context"

// Repository aggregates all entity repositories behind one handle.
type Repository interface {
	// Catalog domain
	Category() CategoryRepository
	Exam() ExamRepository
	Topic() TopicRepository
	Question() QuestionRepository

	// Quiz-taking domain
	Session() SessionRepository
	Bookmark() BookmarkRepository

	// User domain (read-only, backed by Casdoor)
	User() UserRepository

	// Analytics
	Dashboard() DashboardRepository

	// WithTransaction runs fn with a Repository bound to one database
	// transaction; fn returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
