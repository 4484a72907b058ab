package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse standard API response structure
type APIResponse struct {
	Data  interface{} `json:"data"`
	Meta  *Meta       `json:"meta,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
}

// Meta pagination and additional metadata
type Meta struct {
	Page  int   `json:"page,omitempty"`
	Limit int   `json:"limit,omitempty"`
	Total int64 `json:"total,omitempty"`
}

// ErrorInfo error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse returns a successful JSON response
func SuccessResponse(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, APIResponse{
		Data: data,
		Meta: meta,
	})
}

// CreatedResponse returns a 201 JSON response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Data: data})
}

// ErrorResponse returns an error JSON response
func ErrorResponse(c *gin.Context, status int, message string, err error) {
	errInfo := &ErrorInfo{
		Code:    getErrorCode(status),
		Message: message,
	}
	if err != nil && status < 500 {
		errInfo.Details = err.Error()
	}

	c.JSON(status, gin.H{
		"error": errInfo,
	})
}

// WriteError maps a service error onto the matching HTTP status
func WriteError(c *gin.Context, err error, fallback string) {
	var verr *ValidationError
	var derr *DeliveryError
	switch {
	case errors.As(err, &verr):
		ErrorResponse(c, http.StatusBadRequest, verr.Error(), nil)
	case errors.As(err, &derr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": &ErrorInfo{
			Code:    "DELIVERY_FAILED",
			Message: derr.Message(),
			Details: string(derr.Cause),
		}})
	case errors.Is(err, ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		ErrorResponse(c, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, "not allowed", nil)
	case errors.Is(err, ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, "not found", err)
	default:
		ErrorResponse(c, http.StatusInternalServerError, fallback, err)
	}
}

// getErrorCode generates error code from HTTP status
func getErrorCode(status int) string {
	switch status {
	case 400:
		return "BAD_REQUEST"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 409:
		return "CONFLICT"
	case 503:
		return "SERVICE_UNAVAILABLE"
	case 500:
		return "INTERNAL_SERVER_ERROR"
	default:
		return "ERROR"
	}
}
