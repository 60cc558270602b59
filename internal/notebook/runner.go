package notebook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ycsa-dashboard/backend/internal/analysis"
)

// NoChartsHint is shown when an executed notebook yields no charts.
const NoChartsHint = "No charts were found in the notebook. Make sure your notebook cells output Plotly figs named `fig1`, `fig2`, ..."

// Runner runs the fixed notebook against an uploaded file. It implements
// analysis.Analyzer.
type Runner struct {
	path      string
	registry  *Registry
	discovery Discovery
	logger    *zap.Logger
}

// NewRunner creates a runner for the notebook at path.
func NewRunner(path string, registry *Registry, discovery Discovery, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if discovery == "" {
		discovery = DiscoverySourceMatch
	}
	return &Runner{
		path:      path,
		registry:  registry,
		discovery: discovery,
		logger:    logger.Named("notebook"),
	}
}

func (r *Runner) Name() string { return "notebook" }

func (r *Runner) NoChartsHint() string { return NoChartsHint }

// Path returns the notebook location.
func (r *Runner) Path() string { return r.path }

// Run loads and executes the notebook, returning the executed document.
// Load problems are StageLoad errors; cell failures are StageExecute.
// A context deadline is returned as is.
func (r *Runner) Run(ctx context.Context, in ExecInput) (*Document, error) {
	doc, err := Load(r.path)
	if err != nil {
		return nil, analysis.LoadFailed(err)
	}
	engine, err := r.registry.FindEngine(doc.KernelName())
	if err != nil {
		return nil, analysis.LoadFailed(err)
	}

	start := time.Now()
	r.logger.Info("executing notebook",
		zap.String("path", r.path),
		zap.String("engine", engine.Name()),
		zap.Int("code_cells", doc.CodeCells()))

	if err := engine.Execute(ctx, doc, in); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, analysis.ExecutionFailed(err)
	}
	r.logger.Info("notebook executed",
		zap.String("engine", engine.Name()),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// Analyze runs the notebook and extracts its chart payloads.
func (r *Runner) Analyze(ctx context.Context, in analysis.Input) ([]analysis.Figure, error) {
	if in.CSVPath == "" {
		return nil, analysis.ExecutionFailed(fmt.Errorf("%s is empty", InputVariable))
	}
	doc, err := r.Run(ctx, ExecInput{CSVPath: in.CSVPath, WorkDir: in.WorkDir})
	if err != nil {
		return nil, err
	}
	figs := Extract(doc, r.discovery)
	r.logger.Debug("charts extracted",
		zap.String("discovery", string(r.discovery)),
		zap.Int("charts", len(figs)))
	return figs, nil
}
