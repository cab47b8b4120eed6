package services

import (
	"context"
	"time"

	"github.com/prephub/quiz-service/internal/importer"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCategoryRequest = validator.CategoryCreateRequest
type UpdateCategoryRequest = validator.CategoryUpdateRequest
type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type CreateTopicRequest = validator.TopicCreateRequest
type UpdateTopicRequest = validator.TopicUpdateRequest

// Use business validator types
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type ChoiceRequest = validator.ChoiceRequest

type StartQuizRequest = validator.QuizStartRequest
type SubmitAnswerRequest = validator.AnswerSubmitRequest

type CategoryResponse struct {
	*models.Category
	ExamCount int `json:"exam_count"`
}

type ExamResponse struct {
	*models.Exam
	QuestionCount int64 `json:"question_count"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type QuestionResponse struct {
	*models.Question
	Bookmarked bool `json:"bookmarked"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// ChoiceView is a choice as delivered to quiz takers. IsCorrect is only
// populated for admin callers; students never see the answer key.
type ChoiceView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Order     int    `json:"order"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type ExamQuestionView struct {
	ID          uint                   `json:"id"`
	TopicID     *uint                  `json:"topic_id,omitempty"`
	Text        string                 `json:"text"`
	Type        models.QuestionType    `json:"type"`
	Difficulty  models.DifficultyLevel `json:"difficulty"`
	Points      int                    `json:"points"`
	Order       int                    `json:"order"`
	Choices     []ChoiceView           `json:"choices"`
}

type ExamQuestionsResponse struct {
	ExamID    uint                `json:"exam_id"`
	Questions []*ExamQuestionView `json:"questions"`
	Total     int                 `json:"total"`
}

// ===== QUIZ SESSION DTOs =====

type SessionResponse struct {
	*models.QuizSession
	RemainingSeconds int `json:"remaining_seconds"`
	AnsweredCount    int `json:"answered_count"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// QuestionResult is the per-question breakdown on a completed session.
type QuestionResult struct {
	QuestionID        uint   `json:"question_id"`
	Text              string `json:"text"`
	Explanation       string `json:"explanation,omitempty"`
	SelectedChoiceIDs []uint `json:"selected_choice_ids"`
	CorrectChoiceIDs  []uint `json:"correct_choice_ids"`
	IsCorrect         bool   `json:"is_correct"`
	Answered          bool   `json:"answered"`
}

type ResultsResponse struct {
	Session   *models.QuizSession `json:"session"`
	Passed    bool                `json:"passed"`
	Questions []QuestionResult    `json:"questions"`
}

// ===== IMPORT DTOs =====

type ImportFileResult = importer.FileResult

type ImportRunResponse struct {
	Files      []ImportFileResult `json:"files"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// ===== SERVICE INTERFACES =====

// CatalogService manages categories, exams and topics.
type CatalogService interface {
	// Categories
	CreateCategory(ctx context.Context, req *CreateCategoryRequest, userID string) (*models.Category, error)
	GetCategory(ctx context.Context, id uint) (*CategoryResponse, error)
	UpdateCategory(ctx context.Context, id uint, req *UpdateCategoryRequest, userID string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uint, userID string) error
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// Exams
	CreateExam(ctx context.Context, req *CreateExamRequest, userID string) (*models.Exam, error)
	GetExam(ctx context.Context, id uint) (*ExamResponse, error)
	UpdateExam(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*models.Exam, error)
	DeleteExam(ctx context.Context, id uint, userID string) error
	ListExams(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error)

	// Topics
	CreateTopic(ctx context.Context, req *CreateTopicRequest, userID string) (*models.Topic, error)
	UpdateTopic(ctx context.Context, id uint, req *UpdateTopicRequest, userID string) (*models.Topic, error)
	ListTopics(ctx context.Context, examID uint) ([]*models.Topic, error)
}

// QuestionService manages questions and their choices.
type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, userID string) (*models.Question, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error)
	// ListExamQuestions returns an exam's active questions for quiz delivery.
	// Correctness flags are included only when the caller is an admin.
	ListExamQuestions(ctx context.Context, examID uint, userID string) (*ExamQuestionsResponse, error)

	// Bookmarks
	Bookmark(ctx context.Context, questionID uint, userID string) error
	Unbookmark(ctx context.Context, questionID uint, userID string) error
	ListBookmarks(ctx context.Context, userID string) ([]*models.BookmarkedQuestion, error)
}

// QuizService runs quiz sessions from start through results.
type QuizService interface {
	Start(ctx context.Context, req *StartQuizRequest, userID string) (*SessionResponse, error)
	GetSession(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error)
	ListSessions(ctx context.Context, filters repositories.SessionFilters, userID string) (*SessionListResponse, error)

	SubmitAnswer(ctx context.Context, sessionID uint, req *SubmitAnswerRequest, userID string) error
	Pause(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error)
	Resume(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error)
	TimeRemaining(ctx context.Context, sessionID uint, userID string) (int, error)

	Complete(ctx context.Context, sessionID uint, userID string) (*ResultsResponse, error)
	Results(ctx context.Context, sessionID uint, userID string) (*ResultsResponse, error)
}

// DashboardService aggregates platform and per-user statistics.
type DashboardService interface {
	GetStats(ctx context.Context, userID string) (*repositories.DashboardStats, error)
	GetCategoryPerformance(ctx context.Context, userID string) ([]*repositories.CategoryPerformance, error)
	GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error)
}

// ImportService runs the bulk question import pipeline.
type ImportService interface {
	// ProcessInbox sweeps the inbox directory and imports every pending file.
	ProcessInbox(ctx context.Context, userID string) (*ImportRunResponse, error)
	// ImportUpload stages an uploaded file into the inbox and imports it.
	ImportUpload(ctx context.Context, fileName string, data []byte, userID string) (*ImportFileResult, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Catalog() CatalogService
	Question() QuestionService
	Quiz() QuizService
	Dashboard() DashboardService
	Import() ImportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
