package utils

import (
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrHistoryDisabled):
		RespondError(c, http.StatusServiceUnavailable, "Chat history is not available")
	case errors.Is(err, ErrInvalidSessionID):
		RespondError(c, http.StatusBadRequest, "session id is required")
	case errors.Is(err, ErrInvalidPageSize):
		RespondError(c, http.StatusBadRequest, "Limit must be between 1 and 200")
	case errors.Is(err, ErrForbidden):
		RespondError(c, http.StatusForbidden, "Access to this resource is forbidden")
	case errors.Is(err, ErrDatabaseError):
		log.WithError(err).WithField("trace_id", traceID(c)).Error("database error")
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		log.WithError(err).WithField("trace_id", traceID(c)).Error("unhandled service error")
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}
