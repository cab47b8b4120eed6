package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/validator"
)

type catalogService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCatalogService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) CatalogService {
	return &catalogService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CATEGORIES =====

func (s *catalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest, userID string) (*models.Category, error) {
	s.logger.Info("Creating category", "name", req.Name, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, userID, 0, "category", "create"); err != nil {
		return nil, err
	}

	// Category names are unique; reject duplicates before hitting the index.
	if _, err := s.repo.Category().GetByName(ctx, nil, req.Name); err == nil {
		return nil, ErrCategoryExists
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.repo.Category().Create(ctx, nil, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", "category_id", category.ID)
	return category, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uint) (*CategoryResponse, error) {
	category, err := s.repo.Category().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &CategoryResponse{
		Category:  category,
		ExamCount: len(category.Exams),
	}, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uint, req *UpdateCategoryRequest, userID string) (*models.Category, error) {
	s.logger.Info("Updating category", "category_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, userID, id, "category", "update"); err != nil {
		return nil, err
	}

	category, err := s.repo.Category().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}

	if err := s.repo.Category().Update(ctx, nil, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting category", "category_id", id, "user_id", userID)

	if err := s.requireAdmin(ctx, userID, id, "category", "delete"); err != nil {
		return err
	}

	if err := s.repo.Category().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.Category().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ===== EXAMS =====

func (s *catalogService) CreateExam(ctx context.Context, req *CreateExamRequest, userID string) (*models.Exam, error) {
	s.logger.Info("Creating exam", "name", req.Name, "category_id", req.CategoryID, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().ValidateExamCreate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAdmin(ctx, userID, 0, "exam", "create"); err != nil {
		return nil, err
	}

	if _, err := s.repo.Category().GetByID(ctx, nil, req.CategoryID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	// (category, name) is the exam's natural key.
	if _, err := s.repo.Exam().GetByName(ctx, nil, req.CategoryID, req.Name); err == nil {
		return nil, ErrExamExists
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check exam name: %w", err)
	}

	exam := &models.Exam{
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		TotalQuestions:  req.TotalQuestions,
		PassingScore:    req.PassingScore,
		IsActive:        true,
	}
	if exam.TotalQuestions == 0 {
		exam.TotalQuestions = 10
	}
	if exam.PassingScore == 0 {
		exam.PassingScore = 60
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}

	if err := s.repo.Exam().Create(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID)
	return exam, nil
}

func (s *catalogService) GetExam(ctx context.Context, id uint) (*ExamResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	count, err := s.repo.Exam().CountActiveQuestions(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count exam questions: %w", err)
	}

	return &ExamResponse{Exam: exam, QuestionCount: count}, nil
}

func (s *catalogService) UpdateExam(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*models.Exam, error) {
	s.logger.Info("Updating exam", "exam_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, userID, id, "exam", "update"); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if req.CategoryID != nil {
		if _, err := s.repo.Category().GetByID(ctx, nil, *req.CategoryID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		exam.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		exam.Name = *req.Name
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.TotalQuestions != nil {
		exam.TotalQuestions = *req.TotalQuestions
	}
	if req.PassingScore != nil {
		exam.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	return exam, nil
}

func (s *catalogService) DeleteExam(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting exam", "exam_id", id, "user_id", userID)

	if err := s.requireAdmin(ctx, userID, id, "exam", "delete"); err != nil {
		return err
	}

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	return nil
}

func (s *catalogService) ListExams(ctx context.Context, filters repositories.ExamFilters) (*ExamListResponse, error) {
	exams, total, err := s.repo.Exam().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	responses := make([]*ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, &ExamResponse{Exam: exam})
	}

	return &ExamListResponse{
		Exams: responses,
		Total: total,
		Page:  pageFromOffset(filters.Offset, filters.Limit),
		Size:  filters.Limit,
	}, nil
}

// ===== TOPICS =====

func (s *catalogService) CreateTopic(ctx context.Context, req *CreateTopicRequest, userID string) (*models.Topic, error) {
	s.logger.Info("Creating topic", "name", req.Name, "exam_id", req.ExamID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, userID, 0, "topic", "create"); err != nil {
		return nil, err
	}

	if _, err := s.repo.Exam().GetByID(ctx, nil, req.ExamID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	topic := &models.Topic{
		ExamID:      req.ExamID,
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
	}

	created, err := s.repo.Topic().GetOrCreate(ctx, nil, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	if !created {
		// GetOrCreate loaded the existing row; apply the request on top.
		topic.Description = req.Description
		topic.Order = req.Order
		if err := s.repo.Topic().Update(ctx, nil, topic); err != nil {
			return nil, fmt.Errorf("failed to update topic: %w", err)
		}
	}

	return topic, nil
}

func (s *catalogService) UpdateTopic(ctx context.Context, id uint, req *UpdateTopicRequest, userID string) (*models.Topic, error) {
	s.logger.Info("Updating topic", "topic_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, userID, id, "topic", "update"); err != nil {
		return nil, err
	}

	topic, err := s.getTopicByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		topic.Name = *req.Name
	}
	if req.Description != nil {
		topic.Description = *req.Description
	}
	if req.Order != nil {
		topic.Order = *req.Order
	}

	if err := s.repo.Topic().Update(ctx, nil, topic); err != nil {
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}

	return topic, nil
}

func (s *catalogService) ListTopics(ctx context.Context, examID uint) ([]*models.Topic, error) {
	topics, err := s.repo.Topic().ListByExam(ctx, nil, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// ===== HELPERS =====

func (s *catalogService) getTopicByID(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &topic, nil
}

func (s *catalogService) requireAdmin(ctx context.Context, userID string, resourceID uint, resource, action string) error {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		return NewPermissionError(userID, resourceID, resource, action, "insufficient role permissions")
	}
	return nil
}

func pageFromOffset(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
