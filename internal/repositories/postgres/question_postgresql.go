package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/cache"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (r *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== BASIC CRUD OPERATIONS =====

func (r *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, r.cacheManager, question.ID, question.ExamID)

	return nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := r.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// GetByIDWithChoices is cache-aside outside transactions; see ExamPostgreSQL.GetByID.
func (r *QuestionPostgreSQL) GetByIDWithChoices(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	if tx != nil {
		return r.fetchByIDWithChoices(ctx, tx, id)
	}

	var question models.Question
	err := r.cacheManager.Question.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &question, cache.QuestionTTL,
		func() (interface{}, error) {
			return r.fetchByIDWithChoices(ctx, r.db, id)
		})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) fetchByIDWithChoices(ctx context.Context, db *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question with choices: %w", err)
	}
	return &question, nil
}

// GetByNaturalKey looks a question up by the (exam, text) import key.
func (r *QuestionPostgreSQL) GetByNaturalKey(ctx context.Context, tx *gorm.DB, examID uint, text string) (*models.Question, error) {
	db := r.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND text = ?", examID, text).
		First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question in exam %d: %w", examID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question by natural key: %w", err)
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, r.cacheManager, question.ID, question.ExamID)

	return nil
}

func (r *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)

	err := db.Transaction(func(tx *gorm.DB) error {
		// choices and answers reference the question
		if err := tx.WithContext(ctx).Where("question_id = ?", id).Delete(&models.Choice{}).Error; err != nil {
			return fmt.Errorf("failed to delete question choices: %w", err)
		}
		if err := tx.WithContext(ctx).Where("question_id = ?", id).Delete(&models.BookmarkedQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to delete question bookmarks: %w", err)
		}

		result := tx.WithContext(ctx).Delete(&models.Question{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete question: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.SafeDelete(ctx, r.cacheManager.Question, fmt.Sprintf("id:%d", id))
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Question, "list:*", "exam:*")

	return nil
}

// ===== QUERY OPERATIONS =====

func (r *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Question{})

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.TopicID != nil {
		query = query.Where("topic_id = ?", *filters.TopicID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	var questions []*models.Question
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Choices", func(db *gorm.DB) *gorm.DB {
		return db.Order(`"order" ASC, id ASC`)
	}).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

func (r *QuestionPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, activeOnly bool) ([]*models.Question, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Where("exam_id = ?", examID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var questions []*models.Question
	if err := query.
		Order(`"order" ASC, id ASC`).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list exam questions: %w", err)
	}
	return questions, nil
}

// ReplaceChoices swaps the question's choice set wholesale: re-import never
// merges old and new options.
func (r *QuestionPostgreSQL) ReplaceChoices(ctx context.Context, tx *gorm.DB, questionID uint, choices []models.Choice) error {
	db := r.getDB(tx)

	if err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&models.Choice{}).Error; err != nil {
		return fmt.Errorf("failed to delete existing choices: %w", err)
	}

	for i := range choices {
		choices[i].ID = 0
		choices[i].QuestionID = questionID
		if choices[i].Order == 0 {
			choices[i].Order = i
		}
	}
	if len(choices) > 0 {
		if err := db.WithContext(ctx).Create(&choices).Error; err != nil {
			return fmt.Errorf("failed to create choices: %w", err)
		}
	}

	cache.SafeDelete(ctx, r.cacheManager.Question, fmt.Sprintf("id:%d", questionID))

	return nil
}
