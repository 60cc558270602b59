// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	engine   string
	sessions SessionCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, engine string, sessions SessionCounter) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		engine:   engine,
		sessions: sessions,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"engine":  h.engine,
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions.Len()
	}
	return respond(c, http.StatusOK, body)
}
