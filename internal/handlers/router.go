package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/config"
	"github.com/prephub/quiz-service/internal/models"
	"github.com/prephub/quiz-service/internal/repositories"
	"github.com/prephub/quiz-service/internal/services"
	"github.com/prephub/quiz-service/internal/utils"
	"github.com/prephub/quiz-service/internal/validator"
)

type HandlerManager struct {
	catalogHandler   *CatalogHandler
	questionHandler  *QuestionHandler
	quizHandler      *QuizHandler
	dashboardHandler *DashboardHandler
	importHandler    *ImportHandler
	userHandler      *UserHandler
	authMiddleware   *CasdoorAuthMiddleware
	serviceManager   services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		catalogHandler:   NewCatalogHandler(serviceManager.Catalog(), validator, logger),
		questionHandler:  NewQuestionHandler(serviceManager.Question(), validator, logger),
		quizHandler:      NewQuizHandler(serviceManager.Quiz(), validator, logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		importHandler:    NewImportHandler(serviceManager.Import(), logger),
		userHandler:      NewUserHandler(userRepo, logger),
		authMiddleware:   authMiddleware,
		serviceManager:   serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint (no auth)
	router.GET("/health", hm.healthCheck)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

		// Category routes
		categories := v1.Group("/categories")
		{
			categories.GET("", hm.catalogHandler.ListCategories)
			categories.GET("/:id", hm.catalogHandler.GetCategory)
			categories.POST("", adminOnly, hm.catalogHandler.CreateCategory)
			categories.PUT("/:id", adminOnly, hm.catalogHandler.UpdateCategory)
			categories.DELETE("/:id", adminOnly, hm.catalogHandler.DeleteCategory)
		}

		// Exam routes
		exams := v1.Group("/exams")
		{
			exams.GET("", hm.catalogHandler.ListExams)
			exams.GET("/:id", hm.catalogHandler.GetExam)
			exams.GET("/:id/topics", hm.catalogHandler.ListTopics)
			exams.GET("/:id/questions", hm.questionHandler.ListExamQuestions)
			exams.POST("", adminOnly, hm.catalogHandler.CreateExam)
			exams.PUT("/:id", adminOnly, hm.catalogHandler.UpdateExam)
			exams.DELETE("/:id", adminOnly, hm.catalogHandler.DeleteExam)
		}

		// Topic routes
		topics := v1.Group("/topics")
		{
			topics.POST("", adminOnly, hm.catalogHandler.CreateTopic)
			topics.PUT("/:id", adminOnly, hm.catalogHandler.UpdateTopic)
		}

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.POST("", adminOnly, hm.questionHandler.CreateQuestion)
			questions.PUT("/:id", adminOnly, hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", adminOnly, hm.questionHandler.DeleteQuestion)
			questions.POST("/:id/bookmark", hm.questionHandler.BookmarkQuestion)
			questions.DELETE("/:id/bookmark", hm.questionHandler.UnbookmarkQuestion)
		}

		// Bookmark listing
		v1.GET("/bookmarks", hm.questionHandler.ListBookmarks)

		// Quiz session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.quizHandler.StartQuiz)
			sessions.GET("", hm.quizHandler.ListSessions)
			sessions.GET("/:id", hm.quizHandler.GetSession)
			sessions.POST("/:id/answers", hm.quizHandler.SubmitAnswer)
			sessions.POST("/:id/pause", hm.quizHandler.PauseSession)
			sessions.POST("/:id/resume", hm.quizHandler.ResumeSession)
			sessions.GET("/:id/time-remaining", hm.quizHandler.GetTimeRemaining)
			sessions.POST("/:id/complete", hm.quizHandler.CompleteSession)
			sessions.GET("/:id/results", hm.quizHandler.GetResults)
		}

		// Dashboard routes
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/stats", adminOnly, hm.dashboardHandler.GetStats)
			dashboard.GET("/category-performance", adminOnly, hm.dashboardHandler.GetCategoryPerformance)
		}

		// Current user routes
		me := v1.Group("/me")
		{
			me.GET("", hm.userHandler.GetCurrentUser)
			me.GET("/stats", hm.dashboardHandler.GetMyStats)
		}

		// Admin routes
		admin := v1.Group("/admin", adminOnly)
		{
			admin.GET("/users", hm.userHandler.ListUsers)
			admin.POST("/import", hm.importHandler.RunImport)
			admin.POST("/import/upload", hm.importHandler.UploadImport)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "quiz-service",
	})
}
