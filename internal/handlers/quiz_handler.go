package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/services"
	"github.com/prephub/quiz-service/internal/utils"
	"github.com/prephub/quiz-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
	validator   *validator.Validator
}

func NewQuizHandler(
	quizService services.QuizService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
		validator:   validator,
	}
}

// StartQuiz starts a new quiz session on an exam
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	var req services.StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	session, err := h.quizService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a quiz session
func (h *QuizHandler) GetSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	session, err := h.quizService.GetSession(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists quiz sessions (own sessions, or any for admins)
func (h *QuizHandler) ListSessions(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := repositories.SessionFilters{
		Limit:  parseQueryInt(c, "limit", 20),
		Offset: parseQueryInt(c, "offset", 0),
	}
	if v := c.Query("exam_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			examID := uint(id)
			filters.ExamID = &examID
		}
	}
	if v := c.Query("is_completed"); v != "" {
		completed := v == "true" || v == "1"
		filters.IsCompleted = &completed
	}

	sessions, err := h.quizService.ListSessions(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// SubmitAnswer records (or overwrites) the answer to one question
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.quizService.SubmitAnswer(c.Request.Context(), id, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PauseSession pauses the session clock
func (h *QuizHandler) PauseSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	session, err := h.quizService.Pause(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ResumeSession resumes a paused session
func (h *QuizHandler) ResumeSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	session, err := h.quizService.Resume(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetTimeRemaining returns the seconds left on the session clock
func (h *QuizHandler) GetTimeRemaining(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	remaining, err := h.quizService.TimeRemaining(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"remaining_seconds": remaining})
}

// CompleteSession finalizes the session and returns graded results
func (h *QuizHandler) CompleteSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.quizService.Complete(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetResults returns the per-question breakdown of a completed session
func (h *QuizHandler) GetResults(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.quizService.Results(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
