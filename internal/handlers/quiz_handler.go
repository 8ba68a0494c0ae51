package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// CreateSubject creates a subject owned by the caller
// @Router /subjects [post]
func (h *QuizHandler) CreateSubject(c *gin.Context) {
	h.LogRequest(c, "Creating subject")

	var req validator.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	subject, err := h.quizService.CreateSubject(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subject)
}

// Enroll grants a student access to the subject's quizzes
// @Router /subjects/{id}/enrollments [post]
func (h *QuizHandler) Enroll(c *gin.Context) {
	subjectID := h.parseIDParam(c, "id")
	if subjectID == 0 {
		return
	}

	h.LogRequest(c, "Enrolling student", "subject_id", subjectID)

	var req validator.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	enrollment, err := h.quizService.Enroll(c.Request.Context(), subjectID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// CreateQuiz stores a quiz with its questions and announces it
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	h.LogRequest(c, "Creating quiz")

	var req validator.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns the quiz; answer keys are only shown to its owner and admins
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), quizID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}
