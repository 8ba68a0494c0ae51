package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	gradingHandler *GradingHandler

	serviceManager services.ServiceManager
	authenticate   gin.HandlerFunc
	answerLimiter  *RateLimiter
}

// NewHandlerManager wires handlers to services. authenticate must set the
// caller principal (see SetUserInContext); answerLimiter may be nil.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authenticate gin.HandlerFunc,
	answerLimiter *RateLimiter,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), serviceManager.Answer(), serviceManager.Export(), validator, logger),
		gradingHandler: NewGradingHandler(serviceManager.Correction(), serviceManager.Score(), logger),
		serviceManager: serviceManager,
		authenticate:   authenticate,
		answerLimiter:  answerLimiter,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	graders := RequireRole(models.RoleTeacher, models.RoleAdmin)
	students := RequireRole(models.RoleStudent)

	answerLimit := func(c *gin.Context) { c.Next() }
	if hm.answerLimiter != nil {
		answerLimit = hm.answerLimiter.Middleware()
	}

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authenticate)
	{
		subjects := v1.Group("/subjects")
		subjects.Use(graders)
		{
			subjects.POST("", hm.quizHandler.CreateSubject)
			subjects.POST("/:id/enrollments", hm.quizHandler.Enroll)
		}

		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", graders, hm.quizHandler.CreateQuiz)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)

			quizzes.POST("/:id/attempts", students, hm.attemptHandler.StartAttempt)
			quizzes.GET("/:id/attempts", graders, hm.attemptHandler.ListAttempts)
			quizzes.GET("/:id/attempts/export", graders, hm.attemptHandler.ExportAttempts)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
			attempts.PUT("/:id/answers/:question_id", students, answerLimit, hm.attemptHandler.UpsertAnswer)
			attempts.POST("/:id/finalize", students, hm.attemptHandler.FinalizeAttempt)
		}

		grading := v1.Group("/grading")
		grading.Use(graders)
		{
			grading.PUT("/answers/:answer_id", hm.gradingHandler.ApplyCorrection)
			grading.POST("/attempts/:id/recompute", hm.gradingHandler.RecomputeScore)
		}
	}

	router.GET("/metrics", metrics.PrometheusHandler())

	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "quiz-attempt-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "quiz-attempt-service",
		})
	})
}
