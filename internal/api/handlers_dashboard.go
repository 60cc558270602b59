// handlers_dashboard.go - Server-rendered dashboard pages
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/session"
	"github.com/ycsa-dashboard/backend/internal/web"
	"go.uber.org/zap"
)

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct {
	service DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard page handler
func NewDashboardHandler(service DashboardService, logger *zap.Logger) DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandlerImpl{
		service: service,
		logger:  logger,
	}
}

func (h *DashboardHandlerImpl) page() web.Page {
	return web.Page{Extensions: h.service.AllowedExtensions()}
}

// HandleIndex renders the upload page
func (h *DashboardHandlerImpl) HandleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, web.PageIndex, h.page())
}

// HandleUpload stores the posted file and redirects to its session page
func (h *DashboardHandlerImpl) HandleUpload(c echo.Context) error {
	p := h.page()
	file, err := c.FormFile("file")
	if err != nil {
		apiErr := NewBadRequestError("Please choose a file to upload.", err)
		p.Error = apiErr.Message
		return c.Render(apiErr.Status, web.PageIndex, p)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	sess, _, err := h.service.Upload(file.Filename, src)
	if err != nil {
		apiErr := FromError(err, "")
		p.Error = "❌ " + apiErr.Message
		return c.Render(apiErr.Status, web.PageIndex, p)
	}
	h.logger.Info("file uploaded", zap.String("session", sess.ID), zap.String("name", sess.FileName))
	return c.Redirect(http.StatusSeeOther, "/sessions/"+sess.ID)
}

// HandleSession renders the preview page of a session
func (h *DashboardHandlerImpl) HandleSession(c echo.Context) error {
	id := c.Param("id")
	p := h.page()
	sess, preview, err := h.service.Preview(id)
	if err != nil {
		return h.renderLookupError(c, id, err)
	}
	p.Session = &sess
	p.Preview = preview
	return c.Render(http.StatusOK, web.PageSession, p)
}

// HandleGenerateCharts runs the analysis and renders the chart panels
func (h *DashboardHandlerImpl) HandleGenerateCharts(c echo.Context) error {
	id := c.Param("id")
	p := h.page()

	result, runErr := h.service.GenerateCharts(c.Request().Context(), id)
	if runErr != nil && result == nil {
		if errors.Is(runErr, session.ErrRunInProgress) {
			p.Error = "An analysis is already running for this session."
		} else {
			return h.renderLookupError(c, id, runErr)
		}
	}

	sess, preview, err := h.service.Preview(id)
	if err != nil {
		return h.renderLookupError(c, id, err)
	}
	p.Session = &sess
	p.Preview = preview
	p.Result = result

	status := http.StatusOK
	if runErr != nil {
		if result != nil && result.Failure != nil {
			status = NewRunError(analysis.Stage(result.Failure.Stage), "").Status
		} else {
			status = FromError(runErr, id).Status
		}
	}
	return c.Render(status, web.PageSession, p)
}

func (h *DashboardHandlerImpl) renderLookupError(c echo.Context, id string, err error) error {
	apiErr := FromError(err, id)
	p := h.page()
	if apiErr.Status == http.StatusNotFound {
		p.Error = "Session not found or expired. Please upload your file again."
	} else {
		p.Error = "❌ " + apiErr.Message
	}
	return c.Render(apiErr.Status, web.PageIndex, p)
}
