package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/utils"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logger and request helpers shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	if userID, ok := c.Get("user_id"); ok {
		args = append(args, "user_id", userID)
	}
	utils.FromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "method", c.Request.Method, "path", c.FullPath())
	utils.FromContext(c, h.logger).Error(msg, args...)
}

// parseIDParam reads a positive numeric path parameter. It answers 400 and
// returns 0 when the value is not usable.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Code:    "invalid_parameter",
			Details: c.Param(name),
		})
		return 0
	}
	return uint(id)
}

// principal returns the authenticated caller, answering 401 when absent
func (h *BaseHandler) principal(c *gin.Context) (models.Principal, bool) {
	p, err := GetPrincipalFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    "unauthorized",
		})
		return models.Principal{}, false
	}
	return p, true
}

func (h *BaseHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Message: "Invalid request payload",
		Code:    "invalid_payload",
		Details: err.Error(),
	})
}
