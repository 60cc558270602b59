// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/models"
)

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
}

// SessionHandler handles dashboard session operations
type SessionHandler interface {
	HandleGetSession(c echo.Context) error
	HandleGetPreview(c echo.Context) error
	HandleGenerateCharts(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
}

// DashboardHandler serves the server-rendered pages
type DashboardHandler interface {
	HandleIndex(c echo.Context) error
	HandleUpload(c echo.Context) error
	HandleSession(c echo.Context) error
	HandleGenerateCharts(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// DashboardService is the application service behind the handlers.
// This allows mocking in tests
type DashboardService interface {
	Upload(name string, r io.Reader) (models.Session, *models.TablePreview, error)
	Session(id string) (models.Session, error)
	Preview(id string) (models.Session, *models.TablePreview, error)
	GenerateCharts(ctx context.Context, id string) (*models.RunResult, error)
	KeepAlive(id string) error
	Delete(id string) error
	Engine() string
	AllowedExtensions() []string
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Len() int
}
