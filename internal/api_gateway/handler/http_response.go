package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/distributor-bonus-ledger/internal/api_gateway/middleware"
	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents metadata of list responses. Truncated is set when the
// fetch hit its row limit and more records exist.
type MetaInfo struct {
	Count     int  `json:"count"`
	Limit     int  `json:"limit,omitempty"`
	Truncated bool `json:"truncated"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewListResponse creates a response carrying list metadata
func NewListResponse(data interface{}, count, limit int, truncated bool) *Response {
	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Count:     count,
			Limit:     limit,
			Truncated: truncated,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithList sends a JSON response with list metadata
func RespondWithList(c *gin.Context, data interface{}, count, limit int, truncated bool) {
	response := NewListResponse(data, count, limit, truncated)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondMissingContext sends a 401 response for a session lacking an attribute
func RespondMissingContext(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "MISSING_CONTEXT", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondUnprocessable sends a 422 response for records breaking the model invariants
func RespondUnprocessable(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, "DATA_INTEGRITY", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondServiceError maps a reporting error onto the response taxonomy.
// Only unexpected failures are logged at error level.
func RespondServiceError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var (
		missing   bonus.ErrMissingContext
		integrity bonus.ErrDataIntegrity
	)

	switch {
	case errors.As(err, &missing):
		RespondMissingContext(c, err.Error())
	case errors.Is(err, bonus.ErrInvalidDateRange), errors.Is(err, bonus.ErrInvalidStatus):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, bonus.ErrRecordNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.As(err, &integrity):
		logger.Warn("Data integrity violation", "op", op, "record_id", integrity.RecordID, "reason", integrity.Reason)
		RespondUnprocessable(c, err.Error())
	default:
		logger.Error("Request failed", "op", op, "error", err)
		RespondInternalError(c)
	}
}
