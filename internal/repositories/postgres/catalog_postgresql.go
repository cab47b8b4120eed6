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

// ===== CATEGORY =====

type CategoryPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCategoryPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CategoryRepository {
	return &CategoryPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *CategoryPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *CategoryPostgreSQL) Create(ctx context.Context, tx *gorm.DB, category *models.Category) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Catalog, "category:*")
	return nil
}

func (r *CategoryPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Category, error) {
	db := r.getDB(tx)
	var category models.Category
	if err := db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (r *CategoryPostgreSQL) GetByName(ctx context.Context, tx *gorm.DB, name string) (*models.Category, error) {
	db := r.getDB(tx)
	var category models.Category
	if err := db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %q: %w", name, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return &category, nil
}

// GetOrCreateByName is the natural-key upsert used by the import pipeline:
// an explicit lookup followed by a create on miss.
func (r *CategoryPostgreSQL) GetOrCreateByName(ctx context.Context, tx *gorm.DB, name, description string) (*models.Category, error) {
	category, err := r.GetByName(ctx, tx, name)
	if err == nil {
		return category, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	category = &models.Category{Name: name, Description: description}
	if err := r.Create(ctx, tx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *CategoryPostgreSQL) Update(ctx context.Context, tx *gorm.DB, category *models.Category) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Catalog, "category:*")
	return nil
}

func (r *CategoryPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, repositories.ErrNotFound)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Catalog, "category:*")
	return nil
}

func (r *CategoryPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.Category, error) {
	db := r.getDB(tx)
	var categories []*models.Category
	if err := db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ===== EXAM =====

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func (r *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Catalog, "exam:list:*")
	return nil
}

// GetByID is cache-aside outside transactions: inside a transaction the row
// may carry uncommitted state, so it is always read from the tx directly.
func (r *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	if tx != nil {
		return r.fetchByID(ctx, tx, id)
	}

	var exam models.Exam
	err := r.cacheManager.Catalog.CacheOrExecute(ctx, fmt.Sprintf("exam:id:%d", id), &exam, cache.CatalogTTL,
		func() (interface{}, error) {
			return r.fetchByID(ctx, r.db, id)
		})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) fetchByID(ctx context.Context, db *gorm.DB, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := db.WithContext(ctx).Preload("Category").First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("exam %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) GetByName(ctx context.Context, tx *gorm.DB, categoryID uint, name string) (*models.Exam, error) {
	db := r.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).
		Where("category_id = ? AND name = ?", categoryID, name).
		First(&exam).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("exam %q in category %d: %w", name, categoryID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get exam by name: %w", err)
	}
	return &exam, nil
}

// GetOrCreate resolves an exam by its (category, name) natural key. On a hit
// the existing row is loaded into exam and created is false; metadata carried
// in exam is NOT applied here — callers decide the overwrite policy.
func (r *ExamPostgreSQL) GetOrCreate(ctx context.Context, tx *gorm.DB, exam *models.Exam) (bool, error) {
	existing, err := r.GetByName(ctx, tx, exam.CategoryID, exam.Name)
	if err == nil {
		*exam = *existing
		return false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return false, err
	}

	if err := r.Create(ctx, tx, exam); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	cache.InvalidateExamCache(ctx, r.cacheManager, exam.ID)
	return nil
}

func (r *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("exam %d: %w", id, repositories.ErrNotFound)
	}
	cache.InvalidateExamCache(ctx, r.cacheManager, id)
	return nil
}

func (r *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Exam{})

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	var exams []*models.Exam
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Category").Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

func (r *ExamPostgreSQL) CountActiveQuestions(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	db := r.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("exam_id = ? AND is_active = ?", examID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active questions: %w", err)
	}
	return count, nil
}

// ===== TOPIC =====

type TopicPostgreSQL struct {
	db *gorm.DB
}

func NewTopicPostgreSQL(db *gorm.DB) repositories.TopicRepository {
	return &TopicPostgreSQL{db: db}
}

func (r *TopicPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *TopicPostgreSQL) GetByName(ctx context.Context, tx *gorm.DB, examID uint, name string) (*models.Topic, error) {
	db := r.getDB(tx)
	var topic models.Topic
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND name = ?", examID, name).
		First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("topic %q in exam %d: %w", name, examID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get topic by name: %w", err)
	}
	return &topic, nil
}

// GetOrCreate resolves a topic by its (exam, name) natural key.
func (r *TopicPostgreSQL) GetOrCreate(ctx context.Context, tx *gorm.DB, topic *models.Topic) (bool, error) {
	existing, err := r.GetByName(ctx, tx, topic.ExamID, topic.Name)
	if err == nil {
		*topic = *existing
		return false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return false, err
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(topic).Error; err != nil {
		return false, fmt.Errorf("failed to create topic: %w", err)
	}
	return true, nil
}

func (r *TopicPostgreSQL) Update(ctx context.Context, tx *gorm.DB, topic *models.Topic) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(topic).Error; err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	return nil
}

func (r *TopicPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Topic, error) {
	db := r.getDB(tx)
	var topics []*models.Topic
	if err := db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order(`"order" ASC, name ASC`).
		Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}
