// Package response provides the JSON envelope used by all profile service
// endpoints.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "provizor/pkg/errors"
)

// Response is the base API payload.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo holds error details safe to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	if appErr == nil {
		appErr = apperrors.ErrInternalServer
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}
