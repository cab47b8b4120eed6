package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// GetStats returns platform-wide aggregates. Admin only.
func (s *dashboardService) GetStats(ctx context.Context, userID string) (*repositories.DashboardStats, error) {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		return nil, NewPermissionError(userID, 0, "dashboard", "read", "insufficient role permissions")
	}

	stats, err := s.repo.Dashboard().GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}

// GetCategoryPerformance returns average scores per category. Admin only.
func (s *dashboardService) GetCategoryPerformance(ctx context.Context, userID string) ([]*repositories.CategoryPerformance, error) {
	isAdmin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !isAdmin {
		return nil, NewPermissionError(userID, 0, "dashboard", "read", "insufficient role permissions")
	}

	performance, err := s.repo.Dashboard().GetCategoryPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load category performance: %w", err)
	}
	return performance, nil
}

// GetUserStats returns the calling user's own quiz history aggregates.
func (s *dashboardService) GetUserStats(ctx context.Context, userID string) (*repositories.UserStats, error) {
	stats, err := s.repo.Dashboard().GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}
	return stats, nil
}
