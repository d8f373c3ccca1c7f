package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendora-inc/vendora/internal/shared/errors"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

// ErrorInfo represents error information in API response
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse sends a successful response with custom status code
func SuccessResponse(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Type:    "error",
			Message: message,
		},
	})
}

// ErrorResponseWithData sends a failure body that still carries a payload,
// used by guards that render a prompt alongside the denial.
func ErrorResponseWithData(c *gin.Context, statusCode int, errType, message string, data any) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Data:    data,
		Error: &ErrorInfo{
			Type:    errType,
			Message: message,
		},
	})
}

// ErrorResponseWithError sends an error response based on error type.
// Details are only included when exposeDetails is set.
func ErrorResponseWithError(c *gin.Context, err error, exposeDetails bool) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		// Non-AppErrors never leak their text.
		c.JSON(http.StatusInternalServerError, APIResponse{
			Success: false,
			Error: &ErrorInfo{
				Type:    string(errors.ErrorTypeInternal),
				Message: "Internal server error occurred",
			},
		})
		return
	}

	info := &ErrorInfo{
		Type:    string(appErr.Type),
		Message: appErr.Message,
	}
	if exposeDetails {
		info.Details = appErr.Details
	}
	c.JSON(appErr.Code, APIResponse{Success: false, Error: info})
}
