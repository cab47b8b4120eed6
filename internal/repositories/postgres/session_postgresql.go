package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create quiz session: %w", err)
	}
	return nil
}

func (r *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	db := r.getDB(tx)
	var session models.QuizSession
	if err := db.WithContext(ctx).Preload("Exam").First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("quiz session %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quiz session: %w", err)
	}
	return &session, nil
}

func (r *SessionPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizSession, error) {
	db := r.getDB(tx)
	var session models.QuizSession
	if err := db.WithContext(ctx).
		Preload("Exam").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answered_at ASC")
		}).
		Preload("Answers.Question").
		Preload("Answers.Question.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("quiz session %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quiz session with answers: %w", err)
	}
	return &session, nil
}

func (r *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.QuizSession) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update quiz session: %w", err)
	}
	return nil
}

func (r *SessionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.QuizSession, int64, error) {
	db := r.getDB(tx)
	query := db.WithContext(ctx).Model(&models.QuizSession{})

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filters.IsCompleted)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quiz sessions: %w", err)
	}

	var sessions []*models.QuizSession
	query = r.helpers.ApplyPaginationAndSort(query, "started_at", "desc", filters.Limit, filters.Offset)
	if err := query.Preload("Exam").Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list quiz sessions: %w", err)
	}

	return sessions, total, nil
}

// UpsertAnswer keeps one answer row per (session, question); resubmitting a
// question overwrites the previous selection.
func (r *SessionPostgreSQL) UpsertAnswer(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "quiz_session_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_choice_ids", "is_correct", "answered_at",
			}),
		}).
		Create(answer).Error; err != nil {
		return fmt.Errorf("failed to upsert user answer: %w", err)
	}
	return nil
}

func (r *SessionPostgreSQL) ListAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.UserAnswer, error) {
	db := r.getDB(tx)
	var answers []*models.UserAnswer
	if err := db.WithContext(ctx).
		Where("quiz_session_id = ?", sessionID).
		Order("answered_at ASC").
		Preload("Question").
		Preload("Question.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list user answers: %w", err)
	}
	return answers, nil
}

func (r *SessionPostgreSQL) CountCorrectAnswers(ctx context.Context, tx *gorm.DB, sessionID uint) (int64, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.UserAnswer{}).
		Where("quiz_session_id = ? AND is_correct = ?", sessionID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count correct answers: %w", err)
	}
	return count, nil
}

// ===== BOOKMARKS =====

type BookmarkPostgreSQL struct {
	db *gorm.DB
}

func NewBookmarkPostgreSQL(db *gorm.DB) repositories.BookmarkRepository {
	return &BookmarkPostgreSQL{db: db}
}

func (r *BookmarkPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *BookmarkPostgreSQL) Add(ctx context.Context, tx *gorm.DB, bookmark *models.BookmarkedQuestion) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(bookmark).Error; err != nil {
		return fmt.Errorf("failed to add bookmark: %w", err)
	}
	return nil
}

func (r *BookmarkPostgreSQL) Remove(ctx context.Context, tx *gorm.DB, userID string, questionID uint) error {
	db := r.getDB(tx)
	result := db.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Delete(&models.BookmarkedQuestion{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove bookmark: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("bookmark for question %d: %w", questionID, repositories.ErrNotFound)
	}
	return nil
}

func (r *BookmarkPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.BookmarkedQuestion, error) {
	db := r.getDB(tx)
	var bookmarks []*models.BookmarkedQuestion
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Question").
		Preload("Question.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"order" ASC, id ASC`)
		}).
		Find(&bookmarks).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return bookmarks, nil
}
