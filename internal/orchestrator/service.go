// Package orchestrator runs the upload → preview → generate charts flow for
// dashboard sessions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/models"
	"github.com/ycsa-dashboard/backend/internal/plotly"
	"github.com/ycsa-dashboard/backend/internal/session"
	"github.com/ycsa-dashboard/backend/internal/storage"
	"github.com/ycsa-dashboard/backend/internal/table"
	"github.com/ycsa-dashboard/backend/internal/upload"
)

// FailurePrefix starts every user-visible run failure message.
const FailurePrefix = "Notebook execution failed:"

// DefaultTimeout bounds one chart run.
const DefaultTimeout = 600 * time.Second

// Service coordinates storage, sessions, scoped temp files and the
// analysis engine.
type Service struct {
	store    storage.Store
	sessions *session.Manager
	uploads  *upload.Manager
	analyzer analysis.Analyzer
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service.
func New(store storage.Store, sessions *session.Manager, uploads *upload.Manager, analyzer analysis.Analyzer, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		sessions: sessions,
		uploads:  uploads,
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logger.Named("orchestrator"),
	}
}

// Engine returns the analysis engine name.
func (s *Service) Engine() string { return s.analyzer.Name() }

// Timeout returns the per-run deadline.
func (s *Service) Timeout() time.Duration { return s.timeout }

// AllowedExtensions returns the accepted upload extensions.
func (s *Service) AllowedExtensions() []string { return s.uploads.AllowedExtensions() }

// Upload stores a file, parses it and opens a session for it. A file that
// does not parse is discarded and the parse error returned.
func (s *Service) Upload(name string, r io.Reader) (models.Session, *models.TablePreview, error) {
	if err := s.uploads.ValidateFileName(name); err != nil {
		return models.Session{}, nil, err
	}
	info, err := s.store.Save(name, r)
	if err != nil {
		return models.Session{}, nil, err
	}

	preview, err := s.preview(info.ID)
	if err != nil {
		s.store.Delete(info.ID)
		return models.Session{}, nil, err
	}

	sess, err := s.sessions.Create(info)
	if err != nil {
		s.store.Delete(info.ID)
		return models.Session{}, nil, err
	}
	sess, err = s.sessions.MarkPreviewed(sess.ID)
	if err != nil {
		return models.Session{}, nil, err
	}
	return sess, preview, nil
}

func (s *Service) table(fileID string) (*table.Table, error) {
	data, err := s.store.Bytes(fileID)
	if err != nil {
		return nil, err
	}
	return table.Parse(data)
}

func (s *Service) preview(fileID string) (*models.TablePreview, error) {
	t, err := s.table(fileID)
	if err != nil {
		return nil, err
	}
	return t.Preview(), nil
}

// Session returns a session by ID.
func (s *Service) Session(id string) (models.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return models.Session{}, session.ErrNotFound
	}
	return sess, nil
}

// Preview re-derives the preview of a session's file.
func (s *Service) Preview(id string) (models.Session, *models.TablePreview, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return models.Session{}, nil, session.ErrNotFound
	}
	preview, err := s.preview(sess.FileID)
	if err != nil {
		return sess, nil, err
	}
	sess, err = s.sessions.MarkPreviewed(id)
	if err != nil {
		return sess, nil, err
	}
	return sess, preview, nil
}

// KeepAlive protects a session from idle cleanup.
func (s *Service) KeepAlive(id string) error {
	if !s.sessions.Touch(id) {
		return session.ErrNotFound
	}
	return nil
}

// Delete ends a session and drops its file.
func (s *Service) Delete(id string) error {
	return s.sessions.Delete(id)
}

// Release drops the stored bytes of a removed session. It is the session
// manager's OnRemove hook.
func (s *Service) Release(sess models.Session) {
	if err := s.store.Delete(sess.FileID); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.Warn("failed to release file", zap.String("file", sess.FileID), zap.Error(err))
	}
}

// GenerateCharts runs the analysis for a session. Session lookup and
// concurrency errors are returned without a result. A failed run returns
// both a result describing the failure and the stage-typed error.
func (s *Service) GenerateCharts(ctx context.Context, id string) (*models.RunResult, error) {
	sess, err := s.sessions.BeginRun(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &models.RunResult{
		SessionID: id,
		Engine:    s.analyzer.Name(),
		Charts:    []models.Chart{},
	}
	log := s.logger.With(zap.String("session", sess.ID), zap.String("engine", result.Engine))

	charts, err := s.run(ctx, sess)
	result.DurationMs = time.Since(start).Milliseconds()
	summary := models.RunSummary{
		Engine:     result.Engine,
		DurationMs: result.DurationMs,
		FinishedAt: time.Now(),
	}

	if err != nil {
		stage := analysis.StageOf(err)
		result.Status = models.RunStatusFailed
		result.Failure = &models.RunFailure{
			Stage:   string(stage),
			Message: FailurePrefix + "\n" + err.Error(),
		}
		summary.Status = models.RunStatusFailed
		summary.FailureStage = string(stage)
		if _, ferr := s.sessions.FinishRun(id, summary); ferr != nil {
			log.Warn("failed to record run", zap.Error(ferr))
		}
		log.Warn("chart run failed", zap.String("stage", string(stage)), zap.Error(err),
			zap.Int64("duration_ms", result.DurationMs))
		return result, err
	}

	result.Status = models.RunStatusSucceeded
	result.Charts = charts
	if len(charts) == 0 {
		result.Warning = s.analyzer.NoChartsHint()
	}
	summary.Status = models.RunStatusSucceeded
	summary.ChartCount = len(charts)
	if _, err := s.sessions.FinishRun(id, summary); err != nil {
		log.Warn("failed to record run", zap.Error(err))
	}
	log.Info("chart run finished", zap.Int("charts", len(charts)),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// run executes and extracts inside a request scope that is removed on
// every exit path.
func (s *Service) run(ctx context.Context, sess models.Session) ([]models.Chart, error) {
	data, err := s.store.Bytes(sess.FileID)
	if err != nil {
		return nil, analysis.ExecutionFailed(err)
	}
	t, err := table.Parse(data)
	if err != nil {
		return nil, analysis.ExecutionFailed(err)
	}

	scope, err := s.uploads.Open(data)
	if err != nil {
		return nil, analysis.ExecutionFailed(err)
	}
	defer scope.Close()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	figs, err := s.analyze(runCtx, analysis.Input{
		CSVPath:  scope.Path(),
		WorkDir:  scope.Dir,
		FileName: sess.FileName,
		Table:    t,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, analysis.Timeout(s.timeout)
		}
		return nil, err
	}

	if _, err := s.sessions.Transition(sess.ID, models.SessionStatusSucceeded); err != nil {
		return nil, analysis.ExecutionFailed(err)
	}
	if _, err := s.sessions.Transition(sess.ID, models.SessionStatusExtracting); err != nil {
		return nil, analysis.ExtractFailed(err)
	}
	return Number(figs)
}

// analyze calls the engine, turning a panic into an execution failure.
func (s *Service) analyze(ctx context.Context, in analysis.Input) (figs []analysis.Figure, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis panicked", zap.Any("panic", r))
			figs, err = nil, analysis.ExecutionFailed(fmt.Errorf("analysis panicked: %v", r))
		}
	}()
	return s.analyzer.Analyze(ctx, in)
}

// Number decodes chart payloads and numbers them from 1 in order. Any
// payload that does not decode fails the whole set.
func Number(figs []analysis.Figure) ([]models.Chart, error) {
	charts := make([]models.Chart, 0, len(figs))
	for i, f := range figs {
		fig, err := plotly.Decode(f.Payload)
		if err != nil {
			return nil, analysis.ExtractFailed(fmt.Errorf("chart %d: %w", i+1, err))
		}
		raw, err := fig.JSON()
		if err != nil {
			return nil, analysis.ExtractFailed(fmt.Errorf("chart %d: %w", i+1, err))
		}
		charts = append(charts, models.Chart{
			Index:  i + 1,
			Title:  fmt.Sprintf("Chart %d", i+1),
			Name:   f.Name,
			Source: f.Source,
			Figure: raw,
		})
	}
	return charts, nil
}
