package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

const defaultAttemptPageSize = 20

type AttemptHandler struct {
	BaseHandler
	attempts  services.AttemptManager
	answers   services.AnswerStore
	export    services.ExportService
	validator *validator.Validator
}

func NewAttemptHandler(
	attempts services.AttemptManager,
	answers services.AnswerStore,
	export services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler: NewBaseHandler(logger),
		attempts:    attempts,
		answers:     answers,
		export:      export,
		validator:   validator,
	}
}

// StartAttempt starts a new attempt or resumes the open one
// @Summary Start quiz attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 201 {object} services.AttemptResponse
// @Success 200 {object} services.AttemptResponse "resumed"
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "quiz_id", quizID)

	student, ok := h.principal(c)
	if !ok {
		return
	}

	attempt, err := h.attempts.StartAttempt(c.Request.Context(), quizID, student)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if attempt.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, attempt)
}

// GetAttempt returns the attempt with its answers and server clock
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	attempt, err := h.attempts.GetAttempt(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetTimeRemaining lets the client resync its countdown
// @Router /attempts/{id}/time-remaining [get]
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	caller, ok := h.principal(c)
	if !ok {
		return
	}

	remaining, err := h.attempts.TimeRemaining(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, remaining)
}

// UpsertAnswer records or replaces the answer to one question
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param question_id path uint true "Question ID"
// @Param answer body validator.UpsertAnswerRequest true "Answer payload"
// @Success 200 {object} models.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers/{question_id} [put]
func (h *AttemptHandler) UpsertAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Saving answer", "attempt_id", attemptID, "question_id", questionID)

	var req validator.UpsertAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	student, ok := h.principal(c)
	if !ok {
		return
	}

	answer, err := h.answers.UpsertAnswer(c.Request.Context(), attemptID, questionID, &req, student)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// FinalizeAttempt submits the attempt; repeating the call returns the same state
// @Router /attempts/{id}/finalize [post]
func (h *AttemptHandler) FinalizeAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Finalizing attempt", "attempt_id", attemptID)

	// the body is optional
	var req validator.FinalizeAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}

	student, ok := h.principal(c)
	if !ok {
		return
	}

	attempt, err := h.attempts.FinalizeAttempt(c.Request.Context(), attemptID, req.TimeRemainingSeconds, student)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListAttempts lists attempts of a quiz for its owner
// @Router /quizzes/{id}/attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	var req validator.ListAttemptsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	grader, ok := h.principal(c)
	if !ok {
		return
	}

	attempts, err := h.attempts.ListAttempts(c.Request.Context(), quizID, toAttemptFilters(&req), grader)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// ExportAttempts streams the quiz's attempts as a spreadsheet
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /quizzes/{id}/attempts/export [get]
func (h *AttemptHandler) ExportAttempts(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}

	h.LogRequest(c, "Exporting attempts", "quiz_id", quizID)

	grader, ok := h.principal(c)
	if !ok {
		return
	}

	file, err := h.export.ExportAttempts(c.Request.Context(), quizID, grader)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func toAttemptFilters(req *validator.ListAttemptsRequest) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		IsSubmitted: req.IsSubmitted,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Limit:       req.Limit,
		Offset:      req.Offset,
		SortBy:      req.SortBy,
		SortOrder:   strings.ToLower(req.SortOrder),
	}
	if filters.Limit == 0 {
		filters.Limit = defaultAttemptPageSize
	}
	if req.StudentID != nil && strings.TrimSpace(*req.StudentID) != "" {
		studentID := strings.TrimSpace(*req.StudentID)
		filters.StudentID = &studentID
	}
	return filters
}
