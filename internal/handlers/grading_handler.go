package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/services"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	corrections services.CorrectionReconciler
	scores      services.ScoreAggregator
}

func NewGradingHandler(corrections services.CorrectionReconciler, scores services.ScoreAggregator, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler: NewBaseHandler(logger),
		corrections: corrections,
		scores:      scores,
	}
}

// ApplyCorrection overrides an answer's verdict and rescores the attempt
// @Summary Correct answer
// @Tags grading
// @Accept json
// @Produce json
// @Param answer_id path uint true "Answer ID"
// @Param correction body validator.CorrectionRequest true "Verdict"
// @Success 200 {object} models.Answer
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /grading/answers/{answer_id} [put]
func (h *GradingHandler) ApplyCorrection(c *gin.Context) {
	answerID := h.parseIDParam(c, "answer_id")
	if answerID == 0 {
		return
	}

	h.LogRequest(c, "Applying correction", "answer_id", answerID)

	var req validator.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	grader, ok := h.principal(c)
	if !ok {
		return
	}

	answer, err := h.corrections.ApplyCorrection(c.Request.Context(), answerID, &req, grader)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// RecomputeScore rebuilds the attempt score from its stored answer points
// @Router /grading/attempts/{id}/recompute [post]
func (h *GradingHandler) RecomputeScore(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Recomputing attempt score", "attempt_id", attemptID)

	grader, ok := h.principal(c)
	if !ok {
		return
	}

	attempt, err := h.scores.RecomputeAttempt(c.Request.Context(), attemptID, grader)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}
