package validator

import (
	"github.com/prephub/quiz-service/internal/models"
)

// CategoryCreateRequest represents the request structure for creating categories
type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

// CategoryUpdateRequest represents the request structure for updating categories
type CategoryUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// ExamCreateRequest represents the request structure for creating exams
type ExamCreateRequest struct {
	CategoryID      uint   `json:"category_id" validate:"required"`
	Name            string `json:"name" validate:"required,max=200"`
	Description     string `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,exam_duration"`
	TotalQuestions  int    `json:"total_questions" validate:"omitempty,min=1,max=500"`
	PassingScore    int    `json:"passing_score" validate:"omitempty,passing_score"`
	IsActive        *bool  `json:"is_active"`
}

// ExamUpdateRequest represents the request structure for updating exams
type ExamUpdateRequest struct {
	CategoryID      *uint   `json:"category_id"`
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,exam_duration"`
	TotalQuestions  *int    `json:"total_questions" validate:"omitempty,min=1,max=500"`
	PassingScore    *int    `json:"passing_score" validate:"omitempty,passing_score"`
	IsActive        *bool   `json:"is_active"`
}

// TopicCreateRequest represents the request structure for creating topics
type TopicCreateRequest struct {
	ExamID      uint   `json:"exam_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Order       int    `json:"order" validate:"omitempty,min=0"`
}

// TopicUpdateRequest represents the request structure for updating topics
type TopicUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

// ChoiceRequest represents a single choice when creating or updating a question
type ChoiceRequest struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"omitempty,min=0"`
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	ExamID      uint                   `json:"exam_id" validate:"required"`
	TopicID     *uint                  `json:"topic_id"`
	Text        string                 `json:"text" validate:"required,min=1,max=2000"`
	Type        models.QuestionType    `json:"type" validate:"required,question_type"`
	Difficulty  models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation string                 `json:"explanation" validate:"omitempty,max=2000"`
	Points      int                    `json:"points" validate:"omitempty,points_range"`
	Order       int                    `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool                  `json:"is_active"`
	Choices     []ChoiceRequest        `json:"choices" validate:"required,min=2,max=10,dive"`
}

// QuestionUpdateRequest represents the request structure for updating questions
type QuestionUpdateRequest struct {
	TopicID     *uint                   `json:"topic_id"`
	Text        *string                 `json:"text" validate:"omitempty,min=1,max=2000"`
	Type        *models.QuestionType    `json:"type" validate:"omitempty,question_type"`
	Difficulty  *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation *string                 `json:"explanation" validate:"omitempty,max=2000"`
	Points      *int                    `json:"points" validate:"omitempty,points_range"`
	Order       *int                    `json:"order" validate:"omitempty,min=0"`
	IsActive    *bool                   `json:"is_active"`
	Choices     []ChoiceRequest         `json:"choices" validate:"omitempty,min=2,max=10,dive"`
}

// QuizStartRequest represents the request structure for starting a quiz session
type QuizStartRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

// AnswerSubmitRequest represents the request structure for answering a question
// within a running session
type AnswerSubmitRequest struct {
	QuestionID        uint   `json:"question_id" validate:"required"`
	SelectedChoiceIDs []uint `json:"selected_choice_ids" validate:"required,min=1"`
}
