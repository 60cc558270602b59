// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Service     DashboardService
	Sessions    SessionCounter
	Version     string
	AllowDelete bool
	Logger      *zap.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Upload    UploadHandler
	Session   SessionHandler
	Dashboard DashboardHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Service.Engine(), deps.Sessions),
		Upload:    NewUploadHandler(deps.Service, logger.Named("upload")),
		Session:   NewSessionHandler(deps.Service, deps.AllowDelete, logger.Named("session")),
		Dashboard: NewDashboardHandler(deps.Service, logger.Named("dashboard")),
	}
}

// RegisterRoutes registers all API and page routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Dashboard pages
	e.GET("/", handlers.Dashboard.HandleIndex)
	e.POST("/upload", handlers.Dashboard.HandleUpload)
	e.GET("/sessions/:id", handlers.Dashboard.HandleSession)
	e.POST("/sessions/:id/charts", handlers.Dashboard.HandleGenerateCharts)

	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// File upload
	apiGroup.POST("/files/upload", handlers.Upload.HandleUploadFile)

	// Sessions
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.GET("/:id", handlers.Session.HandleGetSession)
	sessionGroup.GET("/:id/preview", handlers.Session.HandleGetPreview)
	sessionGroup.POST("/:id/charts", handlers.Session.HandleGenerateCharts)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.DELETE("/:id", handlers.Session.HandleDeleteSession)
}

// MiddlewareConfig selects the optional middleware
type MiddlewareConfig struct {
	BodyLimit         string
	EnableCORS        bool
	AllowOrigins      string
	EnableCompression bool
	CompressionLevel  int
	EnableRequestLog  bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))

	if cfg.EnableRequestLog {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/api/health" || strings.HasPrefix(path, "/static/")
			},
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogRemoteIP: true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				fields := []zap.Field{
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
					zap.String("remote_ip", v.RemoteIP),
				}
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Info("request", fields...)
				return nil
			},
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	// Compression middleware
	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
		}))
	}

	// CORS configuration
	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
