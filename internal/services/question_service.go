package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, userID string) (*models.Question, error) {
	s.logger.Info("Creating question", "exam_id", req.ExamID, "type", req.Type, "user_id", userID)

	// Validate request with business rules
	if errors := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAdmin(ctx, userID, 0, "question", "create"); err != nil {
		return nil, err
	}

	if _, err := s.repo.Exam().GetByID(ctx, nil, req.ExamID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	question := &models.Question{
		ExamID:      req.ExamID,
		TopicID:     req.TopicID,
		Text:        req.Text,
		Type:        req.Type,
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
		Points:      req.Points,
		Order:       req.Order,
		IsActive:    true,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if question.Points == 0 {
		question.Points = 1
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}

	// Question and choices are written atomically; a failed choice insert
	// must not leave a choiceless question behind.
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Question().Create(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return txRepo.Question().ReplaceChoices(ctx, nil, question.ID, buildChoices(req.Choices))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created", "question_id", question.ID)

	return s.repo.Question().GetByIDWithChoices(ctx, nil, question.ID)
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByIDWithChoices(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return &QuestionResponse{
		Question:   question,
		Bookmarked: s.isBookmarked(ctx, userID, id),
	}, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	if err := s.requireAdmin(ctx, userID, id, "question", "update"); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	// Validate request with business rules against the current question
	if errors := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req, question); len(errors) > 0 {
		return nil, errors
	}

	if req.TopicID != nil {
		question.TopicID = req.TopicID
	}
	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Type != nil {
		question.Type = *req.Type
	}
	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}
	if req.Explanation != nil {
		question.Explanation = *req.Explanation
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Order != nil {
		question.Order = *req.Order
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Question().Update(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
		if req.Choices != nil {
			return txRepo.Question().ReplaceChoices(ctx, nil, question.ID, buildChoices(req.Choices))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Question().GetByIDWithChoices(ctx, nil, id)
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	if err := s.requireAdmin(ctx, userID, id, "question", "delete"); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	return nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	bookmarked := s.bookmarkedSet(ctx, userID)

	responses := make([]*QuestionResponse, 0, len(questions))
	for _, q := range questions {
		responses = append(responses, &QuestionResponse{
			Question:   q,
			Bookmarked: bookmarked[q.ID],
		})
	}

	return &QuestionListResponse{
		Questions: responses,
		Total:     total,
		Page:      pageFromOffset(filters.Offset, filters.Limit),
		Size:      filters.Limit,
	}, nil
}

func (s *questionService) ListExamQuestions(ctx context.Context, examID uint, userID string) (*ExamQuestionsResponse, error) {
	if _, err := s.repo.Exam().GetByID(ctx, nil, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	questions, err := s.repo.Question().ListByExam(ctx, nil, examID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam questions: %w", err)
	}

	// A failed role lookup degrades to the student view rather than
	// blocking the quiz.
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("Failed to resolve caller role", "user_id", userID, "error", err)
		isAdmin = false
	}

	views := make([]*ExamQuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, examQuestionView(q, isAdmin))
	}

	return &ExamQuestionsResponse{
		ExamID:    examID,
		Questions: views,
		Total:     len(views),
	}, nil
}

// examQuestionView strips the answer key unless the caller is an admin.
// Explanations are withheld from everyone here; they belong to the
// results view.
func examQuestionView(q *models.Question, includeCorrectness bool) *ExamQuestionView {
	choices := make([]ChoiceView, 0, len(q.Choices))
	for _, c := range q.Choices {
		view := ChoiceView{
			ID:    c.ID,
			Text:  c.Text,
			Order: c.Order,
		}
		if includeCorrectness {
			correct := c.IsCorrect
			view.IsCorrect = &correct
		}
		choices = append(choices, view)
	}

	return &ExamQuestionView{
		ID:         q.ID,
		TopicID:    q.TopicID,
		Text:       q.Text,
		Type:       q.Type,
		Difficulty: q.Difficulty,
		Points:     q.Points,
		Order:      q.Order,
		Choices:    choices,
	}
}

// ===== BOOKMARKS =====

func (s *questionService) Bookmark(ctx context.Context, questionID uint, userID string) error {
	if _, err := s.repo.Question().GetByID(ctx, nil, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	bookmark := &models.BookmarkedQuestion{
		UserID:     userID,
		QuestionID: questionID,
	}
	if err := s.repo.Bookmark().Add(ctx, nil, bookmark); err != nil {
		return fmt.Errorf("failed to bookmark question: %w", err)
	}
	return nil
}

func (s *questionService) Unbookmark(ctx context.Context, questionID uint, userID string) error {
	if err := s.repo.Bookmark().Remove(ctx, nil, userID, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrBookmarkNotFound
		}
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	return nil
}

func (s *questionService) ListBookmarks(ctx context.Context, userID string) ([]*models.BookmarkedQuestion, error) {
	bookmarks, err := s.repo.Bookmark().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}

// ===== HELPERS =====

func buildChoices(reqs []ChoiceRequest) []models.Choice {
	choices := make([]models.Choice, 0, len(reqs))
	for i, c := range reqs {
		order := c.Order
		if order == 0 {
			order = i
		}
		choices = append(choices, models.Choice{
			Text:      c.Text,
			IsCorrect: c.IsCorrect,
			Order:     order,
		})
	}
	return choices
}

func (s *questionService) isBookmarked(ctx context.Context, userID string, questionID uint) bool {
	return s.bookmarkedSet(ctx, userID)[questionID]
}

// bookmarkedSet is best-effort; bookmark lookup failures only degrade the
// response flag, never the question read itself.
func (s *questionService) bookmarkedSet(ctx context.Context, userID string) map[uint]bool {
	set := map[uint]bool{}
	if userID == "" {
		return set
	}
	bookmarks, err := s.repo.Bookmark().ListByUser(ctx, nil, userID)
	if err != nil {
		s.logger.Warn("Failed to load bookmarks", "user_id", userID, "error", err)
		return set
	}
	for _, b := range bookmarks {
		set[b.QuestionID] = true
	}
	return set
}

func (s *questionService) requireAdmin(ctx context.Context, userID string, resourceID uint, resource, action string) error {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		return NewPermissionError(userID, resourceID, resource, action, "insufficient role permissions")
	}
	return nil
}
