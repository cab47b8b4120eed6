package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/services"
	"github.com/prephub/quiz-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// GetStats returns platform-wide aggregates (admin only)
func (h *DashboardHandler) GetStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCategoryPerformance returns per-category averages (admin only)
func (h *DashboardHandler) GetCategoryPerformance(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	performance, err := h.dashboardService.GetCategoryPerformance(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": performance})
}

// GetMyStats returns the caller's own quiz history aggregates
func (h *DashboardHandler) GetMyStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
