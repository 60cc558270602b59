package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/api"
	"github.com/ycsa-dashboard/backend/internal/config"
	"github.com/ycsa-dashboard/backend/internal/logging"
	"github.com/ycsa-dashboard/backend/internal/models"
	"github.com/ycsa-dashboard/backend/internal/notebook"
	"github.com/ycsa-dashboard/backend/internal/orchestrator"
	"github.com/ycsa-dashboard/backend/internal/sentiment"
	"github.com/ycsa-dashboard/backend/internal/session"
	"github.com/ycsa-dashboard/backend/internal/storage"
	"github.com/ycsa-dashboard/backend/internal/upload"
	"github.com/ycsa-dashboard/backend/internal/web"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.uploads.CloseAll()

	go app.cleanupLoop(ctx, cfg.CleanupInterval(), cfg.SessionMaxAge())

	e, err := newServer(cfg, app, logger)
	if err != nil {
		return err
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("server starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", path),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("engine", app.service.Engine()),
		zap.String("data_dir", cfg.Storage.DataDirectory))

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// app holds the wired services.
type app struct {
	store    *storage.MemoryStore
	uploads  *upload.Manager
	sessions *session.Manager
	service  *orchestrator.Service
	logger   *zap.Logger
}

func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	maxBytes, err := cfg.MaxUploadBytes()
	if err != nil {
		return nil, err
	}

	// Initialize storage
	store := storage.NewMemoryStore(maxBytes)

	// Initialize upload scope manager
	uploads, err := upload.NewManager(cfg.Storage.TempDirectory, cfg.Security.AllowedFileTypes, logger.Named("upload"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload manager: %w", err)
	}

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{store: store, uploads: uploads, logger: logger}

	// Initialize session manager
	a.sessions = session.NewManager(session.Options{
		MaxSessions:     cfg.Processing.MaxSessions,
		KeepAliveWindow: cfg.KeepAliveWindow(),
		OnRemove: func(s models.Session) {
			a.service.Release(s)
		},
	}, logger)

	a.service = orchestrator.New(store, a.sessions, uploads, analyzer, cfg.AnalysisTimeout(), logger)
	return a, nil
}

// newAnalyzer builds the configured analysis engine.
func newAnalyzer(cfg *config.AppConfig, logger *zap.Logger) (analysis.Analyzer, error) {
	switch strings.ToLower(cfg.Analysis.Engine) {
	case "notebook":
		discovery, err := notebook.ParseDiscovery(cfg.Analysis.ChartDiscovery)
		if err != nil {
			return nil, err
		}
		jupyter := notebook.NewJupyter(notebook.JupyterOptions{
			Command:     cfg.Analysis.JupyterCommand,
			KernelName:  cfg.Analysis.KernelName,
			CellTimeout: cfg.AnalysisTimeout(),
		}, logger)
		registry := notebook.NewRegistry(jupyter, notebook.NewGoKernel(logger))
		return notebook.NewRunner(cfg.Analysis.NotebookPath, registry, discovery, logger), nil
	default:
		lexicon := sentiment.DefaultLexicon()
		if cfg.Analysis.LexiconPath != "" {
			l, err := sentiment.LoadLexicon(cfg.Analysis.LexiconPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load lexicon: %w", err)
			}
			lexicon = l
		}
		return sentiment.NewPipeline(sentiment.Options{
			Lexicon: lexicon,
			Threads: cfg.Analysis.DuckDBThreads,
		}, logger), nil
	}
}

// cleanupLoop removes idle sessions until ctx is done.
func (a *app) cleanupLoop(ctx context.Context, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.CleanupOldSessions(maxAge); n > 0 {
				a.logger.Info("removed idle sessions", zap.Int("count", n))
			}
		}
	}
}

func newServer(cfg *config.AppConfig, a *app, logger *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := web.NewRenderer(web.Branding{
		Title:       cfg.Dashboard.Title,
		LogoURL:     cfg.Dashboard.LogoURL,
		SidebarInfo: cfg.Dashboard.SidebarInfo,
		SidebarTips: cfg.Dashboard.SidebarTips,
		Footer:      cfg.Dashboard.Footer,
	})
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	api.SetupMiddleware(e, api.MiddlewareConfig{
		BodyLimit:         cfg.Server.BodyLimit,
		EnableCORS:        cfg.Server.EnableCORS,
		AllowOrigins:      cfg.Server.AllowOrigins,
		EnableCompression: cfg.Processing.EnableCompression,
		CompressionLevel:  cfg.Processing.CompressionLevel,
		EnableRequestLog:  cfg.Advanced.EnableRequestLogging,
	}, logger.Named("http"))

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Service:     a.service,
		Sessions:    a.sessions,
		Version:     Version,
		AllowDelete: cfg.Security.AllowSessionDeletion,
		Logger:      logger,
	}))
	web.RegisterStaticRoutes(e)
	return e, nil
}
