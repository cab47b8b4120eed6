package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/cache"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

type dashboardRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.DashboardRepository {
	return &dashboardRepository{db: db, cacheManager: cacheManager}
}

// GetStats caches the platform-wide aggregates; they are the most expensive
// query on the dashboard and tolerate a few minutes of staleness.
func (r *dashboardRepository) GetStats(ctx context.Context) (*repositories.DashboardStats, error) {
	var stats repositories.DashboardStats
	err := r.cacheManager.Stats.CacheOrExecute(ctx, "dashboard:global", &stats, cache.StatsTTL,
		func() (interface{}, error) {
			return r.computeStats(ctx)
		})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) computeStats(ctx context.Context) (*repositories.DashboardStats, error) {
	db := r.db.WithContext(ctx)
	stats := &repositories.DashboardStats{}

	if err := db.Model(&models.Category{}).Count(&stats.TotalCategories).Error; err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if err := db.Model(&models.Exam{}).Count(&stats.TotalExams).Error; err != nil {
		return nil, fmt.Errorf("failed to count exams: %w", err)
	}
	if err := db.Model(&models.Question{}).Count(&stats.TotalQuestions).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	if err := db.Model(&models.QuizSession{}).Count(&stats.TotalSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count quiz sessions: %w", err)
	}
	if err := db.Model(&models.QuizSession{}).
		Where("is_completed = ?", true).
		Count(&stats.CompletedSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed sessions: %w", err)
	}

	if stats.CompletedSessions > 0 {
		var avg *float64
		if err := db.Model(&models.QuizSession{}).
			Where("is_completed = ?", true).
			Select("AVG(score)").
			Scan(&avg).Error; err != nil {
			return nil, fmt.Errorf("failed to compute average score: %w", err)
		}
		if avg != nil {
			stats.AverageScore = *avg
		}

		var passed int64
		if err := db.Model(&models.QuizSession{}).
			Joins("JOIN exams ON exams.id = quiz_sessions.exam_id").
			Where("quiz_sessions.is_completed = ? AND quiz_sessions.score >= exams.passing_score", true).
			Count(&passed).Error; err != nil {
			return nil, fmt.Errorf("failed to compute pass rate: %w", err)
		}
		stats.PassRate = float64(passed) / float64(stats.CompletedSessions) * 100
	}

	return stats, nil
}

func (r *dashboardRepository) GetCategoryPerformance(ctx context.Context) ([]*repositories.CategoryPerformance, error) {
	var rows []*repositories.CategoryPerformance

	err := r.db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Select(`categories.id AS category_id,
			categories.name AS category_name,
			COUNT(quiz_sessions.id) AS session_count,
			COALESCE(AVG(quiz_sessions.score), 0) AS average_score`).
		Joins("JOIN exams ON exams.id = quiz_sessions.exam_id").
		Joins("JOIN categories ON categories.id = exams.category_id").
		Where("quiz_sessions.is_completed = ?", true).
		Group("categories.id, categories.name").
		Order("average_score DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get category performance: %w", err)
	}

	return rows, nil
}

func (r *dashboardRepository) GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error) {
	db := r.db.WithContext(ctx)
	stats := &repositories.UserStats{}

	if err := db.Model(&models.QuizSession{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count user sessions: %w", err)
	}

	if err := db.Model(&models.QuizSession{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&stats.CompletedSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count user completed sessions: %w", err)
	}

	if stats.CompletedSessions > 0 {
		type aggregates struct {
			Avg  *float64
			Best *float64
			Time *int64
		}
		var agg aggregates
		if err := db.Model(&models.QuizSession{}).
			Where("user_id = ? AND is_completed = ?", userID, true).
			Select("AVG(score) AS avg, MAX(score) AS best, SUM(COALESCE(time_taken_seconds, 0)) AS time").
			Scan(&agg).Error; err != nil {
			return nil, fmt.Errorf("failed to compute user aggregates: %w", err)
		}
		if agg.Avg != nil {
			stats.AverageScore = *agg.Avg
		}
		if agg.Best != nil {
			stats.BestScore = *agg.Best
		}
		if agg.Time != nil {
			stats.TotalTimeSeconds = *agg.Time
		}
	}

	return stats, nil
}
