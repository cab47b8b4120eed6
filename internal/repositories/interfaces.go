package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	CategoryID *uint  `json:"category_id"`
	IsActive   *bool  `json:"is_active"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	SortBy     string `json:"sort_by"`    // "created_at", "name"
	SortOrder  string `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	ExamID     *uint                   `json:"exam_id"`
	TopicID    *uint                   `json:"topic_id"`
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	IsActive   *bool                   `json:"is_active"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`
	SortOrder  string                  `json:"sort_order"`
}

type SessionFilters struct {
	ExamID      *uint      `json:"exam_id"`
	UserID      *string    `json:"user_id"`
	IsCompleted *bool      `json:"is_completed"`
	DateFrom    *time.Time `json:"date_from"`
	DateTo      *time.Time `json:"date_to"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}

type UserFilters struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ===== STATISTICS STRUCTS =====

type DashboardStats struct {
	TotalCategories   int64   `json:"total_categories"`
	TotalExams        int64   `json:"total_exams"`
	TotalQuestions    int64   `json:"total_questions"`
	TotalSessions     int64   `json:"total_sessions"`
	CompletedSessions int64   `json:"completed_sessions"`
	AverageScore      float64 `json:"average_score"`
	PassRate          float64 `json:"pass_rate"`
}

type CategoryPerformance struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	SessionCount int64   `json:"session_count"`
	AverageScore float64 `json:"average_score"`
}

type UserStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	CompletedSessions int64   `json:"completed_sessions"`
	AverageScore      float64 `json:"average_score"`
	BestScore         float64 `json:"best_score"`
	TotalTimeSeconds  int64   `json:"total_time_seconds"`
}

// ===== REPOSITORY INTERFACES =====

// CategoryRepository persists exam categories.
type CategoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, category *models.Category) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Category, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*models.Category, error)
	// GetOrCreateByName resolves a category by its unique name, creating it
	// with the given description on first reference.
	GetOrCreateByName(ctx context.Context, tx *gorm.DB, name, description string) (*models.Category, error)
	Update(ctx context.Context, tx *gorm.DB, category *models.Category) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB) ([]*models.Category, error)
}

// ExamRepository persists exams keyed naturally by (category, name).
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByName(ctx context.Context, tx *gorm.DB, categoryID uint, name string) (*models.Exam, error)
	GetOrCreate(ctx context.Context, tx *gorm.DB, exam *models.Exam) (created bool, err error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	CountActiveQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error)
}

// TopicRepository persists topics keyed naturally by (exam, name).
type TopicRepository interface {
	GetByName(ctx context.Context, tx *gorm.DB, examID uint, name string) (*models.Topic, error)
	GetOrCreate(ctx context.Context, tx *gorm.DB, topic *models.Topic) (created bool, err error)
	Update(ctx context.Context, tx *gorm.DB, topic *models.Topic) error
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Topic, error)
}

// QuestionRepository persists questions and their choice sets.
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	// GetByNaturalKey looks a question up by its (exam, text) import key.
	GetByNaturalKey(ctx context.Context, tx *gorm.DB, examID uint, text string) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint, activeOnly bool) ([]*models.Question, error)
	// ReplaceChoices deletes the question's existing choices and inserts the
	// given set in order. Used by the import upsert; never merges.
	ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID uint, choices []models.Choice) error
}

// SessionRepository persists quiz sessions and user answers.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error
	List(ctx context.Context, tx *gorm.DB, filters SessionFilters) ([]*models.QuizSession, int64, error)

	// UpsertAnswer creates or overwrites the answer for (session, question).
	UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error
	ListAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.UserAnswer, error)
	CountCorrectAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error)
}

// BookmarkRepository persists per-user question bookmarks.
type BookmarkRepository interface {
	Add(ctx context.Context, tx *gorm.DB, bookmark *models.BookmarkedQuestion) error
	Remove(ctx context.Context, tx *gorm.DB, userID string, questionID uint) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.BookmarkedQuestion, error)
}

// UserRepository reads identities from Casdoor (read-only for this service).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}

// DashboardRepository runs the aggregate queries behind analytics screens.
type DashboardRepository interface {
	GetStats(ctx context.Context) (*DashboardStats, error)
	GetCategoryPerformance(ctx context.Context) ([]*CategoryPerformance, error)
	GetUserStats(ctx context.Context, userID string) (*UserStats, error)
}
