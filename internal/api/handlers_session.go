// handlers_session.go - Dashboard session handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/models"
	"go.uber.org/zap"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	service     DashboardService
	allowDelete bool
	logger      *zap.Logger
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(service DashboardService, allowDelete bool, logger *zap.Logger) SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandlerImpl{
		service:     service,
		allowDelete: allowDelete,
		logger:      logger,
	}
}

// previewResponse pairs a session with its re-derived preview
type previewResponse struct {
	Session models.Session       `json:"session" msgpack:"session"`
	Preview *models.TablePreview `json:"preview" msgpack:"preview"`
}

// HandleGetSession returns session state and the last run summary
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	sess, err := h.service.Session(id)
	if err != nil {
		return FromError(err, id)
	}
	return respond(c, http.StatusOK, sess)
}

// HandleGetPreview re-parses the stored file and returns its preview
func (h *SessionHandlerImpl) HandleGetPreview(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	sess, preview, err := h.service.Preview(id)
	if err != nil {
		return FromError(err, id)
	}
	return respond(c, http.StatusOK, previewResponse{Session: sess, Preview: preview})
}

// HandleGenerateCharts runs the analysis and returns the numbered charts
func (h *SessionHandlerImpl) HandleGenerateCharts(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	result, err := h.service.GenerateCharts(c.Request().Context(), id)
	if err != nil {
		if result != nil && result.Failure != nil {
			return NewRunError(analysis.Stage(result.Failure.Stage), result.Failure.Message)
		}
		return FromError(err, id)
	}
	return respond(c, http.StatusOK, result)
}

// HandleSessionKeepAlive protects a session from idle cleanup
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	if err := h.service.KeepAlive(id); err != nil {
		return FromError(err, id)
	}
	return noContent(c)
}

// HandleDeleteSession ends a session and drops its file
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	if !h.allowDelete {
		return &APIError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "session deletion is disabled"}
	}
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(id); err != nil {
		return FromError(err, id)
	}
	h.logger.Info("session deleted", zap.String("session", id))
	return noContent(c)
}
