// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/session"
	"github.com/ycsa-dashboard/backend/internal/storage"
	"github.com/ycsa-dashboard/backend/internal/table"
	"github.com/ycsa-dashboard/backend/internal/upload"
	"go.uber.org/zap"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-" msgpack:"-"`
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
	Details string `json:"details,omitempty" msgpack:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewParseError creates a 422 error for an upload that is not a readable table
func NewParseError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "PARSE_ERROR",
		Message: cause.Error(),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// NewRunError maps a failed chart run to its status and code. message is
// the user-facing failure text.
func NewRunError(stage analysis.Stage, message string) *APIError {
	err := &APIError{Message: message}
	switch stage {
	case analysis.StageLoad:
		err.Status, err.Code = http.StatusInternalServerError, "NOTEBOOK_LOAD_FAILED"
	case analysis.StageTimeout:
		err.Status, err.Code = http.StatusGatewayTimeout, "EXECUTION_TIMEOUT"
	case analysis.StageExtract:
		err.Status, err.Code = http.StatusUnprocessableEntity, "CHART_DECODE_FAILED"
	default:
		err.Status, err.Code = http.StatusUnprocessableEntity, "EXECUTION_FAILED"
	}
	return err
}

// FromError maps domain errors onto API errors.
func FromError(err error, sessionID string) *APIError {
	var apiErr *APIError
	var parseErr *table.ParseError
	var runErr *analysis.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, session.ErrNotFound):
		return NewNotFoundError("session", sessionID)
	case errors.Is(err, session.ErrRunInProgress):
		return NewConflictError("an analysis is already running for this session")
	case errors.Is(err, session.ErrInvalidTransition):
		return NewConflictError(err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError("too many active sessions, try again later")
	case errors.Is(err, upload.ErrExtensionNotAllowed):
		return &APIError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, storage.ErrFileTooLarge):
		return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "FILE_TOO_LARGE", Message: err.Error()}
	case errors.Is(err, storage.ErrEmptyFile):
		return NewParseError(err)
	case errors.As(err, &parseErr):
		return NewParseError(parseErr)
	case errors.As(err, &runErr):
		return NewRunError(runErr.Stage, err.Error())
	}
	return NewInternalError("an unexpected error occurred", err)
}

// ErrorHandler returns an Echo error handler that writes APIError
// envelopes. Usage: e.HTTPErrorHandler = api.ErrorHandler(logger)
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
		default:
			apiErr = FromError(err, c.Param("id"))
		}

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("code", apiErr.Code),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		if err := respond(c, apiErr.Status, apiErr); err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}
