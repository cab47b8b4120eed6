package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userRepo repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
	}
}

// GetCurrentUser returns the authenticated user's profile
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "user not found",
			})
			return
		}
		h.logger.Error("Failed to load current user", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load user",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers lists users from the identity provider (admin only)
func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := repositories.UserFilters{
		Query:  c.Query("query"),
		Limit:  parseQueryInt(c, "limit", 20),
		Offset: parseQueryInt(c, "offset", 0),
	}

	users, total, err := h.userRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
	})
}
