package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes carried in every error body.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

type APIResponse[T any] struct {
	StatusCode int         `json:"status_code"`
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"request_id"`
	Success    bool        `json:"success"`
	ErrorCode  string      `json:"error_code,omitempty"`
	Message    string      `json:"message"`
	Data       T           `json:"data,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
	Error      interface{} `json:"error,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return APIResponse[T]{
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		RequestID:  ctx.GetString("request_id"),
		Success:    true,
		Message:    message,
		Data:       data,
		Meta:       meta,
	}
}

// Error builds a failure body. message is sanitized; details must already be
// safe to show a client.
func Error[T any](ctx *gin.Context, status int, code, message string, details interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	if code == "" {
		code = CodeInternal
	}
	return APIResponse[T]{
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
		RequestID:  ctx.GetString("request_id"),
		Success:    false,
		ErrorCode:  code,
		Message:    Sanitize(message),
		Error:      details,
	}
}

// JSON writes a success body.
func JSON[T any](ctx *gin.Context, status int, data T, message string) {
	resp := Success(ctx, status, data, message, nil)
	ctx.JSON(resp.StatusCode, resp)
}

// Abort writes a failure body and stops the handler chain.
func Abort(ctx *gin.Context, status int, code, message string, details interface{}) {
	resp := Error[any](ctx, status, code, message, details)
	ctx.AbortWithStatusJSON(resp.StatusCode, resp)
}
