package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/response"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable is the only place application errors become HTTP. Order matters:
// ErrMissingOrMalformedHeader also matches ErrUnauthorized.
var errorTable = []errorMapping{
	{application.ErrInvalidCredentials, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid authentication credentials"},
	{application.ErrUnauthorized, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required"},
	{application.ErrForbidden, http.StatusForbidden, response.CodeForbidden, "Access forbidden: you can only access your own account"},
	{application.ErrNotFound, http.StatusNotFound, response.CodeNotFound, "Resource not found"},
	{application.ErrValidation, http.StatusBadRequest, response.CodeValidation, "Validation failed"},
	{application.ErrEmailTaken, http.StatusBadRequest, response.CodeEmailTaken, "Email already registered"},
	{application.ErrStorageUnavailable, http.StatusServiceUnavailable, response.CodeStorageUnavailable, "Avatar storage is not configured"},
}

func lookupError(err error) errorMapping {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m
		}
	}
	return errorMapping{status: http.StatusInternalServerError, code: response.CodeInternal, message: "Internal server error"}
}

// writeError maps err through errorTable and aborts. Internal errors are
// logged with their cause; the body only ever carries the table message.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	m := lookupError(err)
	var details any
	var ve *application.ValidationError
	if errors.As(err, &ve) {
		details = map[string]string{ve.Field: ve.Message}
	}
	if m.status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	if m.status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Abort(c, m.status, m.code, m.message, details)
}

// badRequest reports a binding failure.
func badRequest(c *gin.Context, details any) {
	response.Abort(c, http.StatusBadRequest, response.CodeValidation, "Validation failed", details)
}
