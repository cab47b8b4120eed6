package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/services"
	"github.com/prephub/quiz-service/internal/utils"
	"github.com/prephub/quiz-service/internal/validator"
)

// ErrorResponse is the uniform error payload of the API.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// currentUserID pulls the authenticated user from the Gin context, replying
// 401 itself when auth middleware did not run.
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid user identity",
		})
		return "", false
	}
	return id, true
}

// parseIDParam parses a positive numeric path parameter, replying 400 itself
// on garbage.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0, false
	}
	return uint(id), true
}

// handleServiceError translates service-layer errors into HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Details: validationErrors,
		})
		return
	}

	if services.IsPermissionError(err) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrExamNotFound),
		errors.Is(err, services.ErrTopicNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrBookmarkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrCategoryExists),
		errors.Is(err, services.ErrExamExists),
		errors.Is(err, services.ErrSessionCompleted),
		errors.Is(err, services.ErrSessionNotCompleted),
		errors.Is(err, services.ErrSessionPaused),
		errors.Is(err, services.ErrSessionNotPaused),
		errors.Is(err, services.ErrSessionExpired):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrUnsupportedImportType):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrExamInactive),
		errors.Is(err, services.ErrNoActiveQuestions),
		errors.Is(err, services.ErrChoiceNotInScope),
		errors.Is(err, services.ErrQuestionNotInExam):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "unprocessable",
			Message: err.Error(),
		})

	default:
		h.logger.Error("Unhandled service error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
