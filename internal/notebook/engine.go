package notebook

import (
	"context"
	"fmt"
	"strings"
)

// InputVariable is the environment variable a notebook reads to locate
// its input CSV. It is only ever set in the kernel's environment.
const InputVariable = "CSV_PATH"

// ExecInput is the per-invocation context handed to an engine.
type ExecInput struct {
	// CSVPath is exposed to the kernel as InputVariable.
	CSVPath string
	// WorkDir is the kernel's working directory; engines may write scratch
	// files there.
	WorkDir string
}

// Env returns the kernel environment entries for this invocation.
func (in ExecInput) Env() []string {
	return []string{InputVariable + "=" + in.CSVPath}
}

// Engine executes every code cell of a document in order, filling in
// outputs in place.
type Engine interface {
	Name() string
	// Supports reports whether the engine can run notebooks declaring
	// the given kernelspec name.
	Supports(kernel string) bool
	// Execute runs the document against a fresh kernel. A failing cell
	// aborts the run with a *CellError.
	Execute(ctx context.Context, doc *Document, in ExecInput) error
}

// CellError is raised by a cell during execution.
type CellError struct {
	// Cell is the index of the failing cell, or -1 when the engine cannot
	// tell.
	Cell   int
	EName  string
	EValue string
}

func (e *CellError) Error() string {
	if e.Cell < 0 {
		return fmt.Sprintf("%s: %s", e.EName, e.EValue)
	}
	return fmt.Sprintf("cell %d raised %s: %s", e.Cell, e.EName, e.EValue)
}

// Registry picks an engine for a notebook from its kernelspec.
type Registry struct {
	engines  []Engine
	fallback Engine
}

// NewRegistry creates a registry. The fallback, when non-nil, runs
// notebooks no registered engine claims.
func NewRegistry(fallback Engine, engines ...Engine) *Registry {
	return &Registry{engines: engines, fallback: fallback}
}

// Register adds an engine. Engines are consulted in registration order.
func (r *Registry) Register(e Engine) {
	r.engines = append(r.engines, e)
}

// FindEngine returns the engine for a kernelspec name.
func (r *Registry) FindEngine(kernel string) (Engine, error) {
	k := strings.ToLower(strings.TrimSpace(kernel))
	for _, e := range r.engines {
		if e.Supports(k) {
			return e, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no engine available for kernel %q", kernel)
}

// GetEngineByName returns an engine by its name.
func (r *Registry) GetEngineByName(name string) (Engine, error) {
	name = strings.ToLower(name)
	for _, e := range r.engines {
		if strings.ToLower(e.Name()) == name {
			return e, nil
		}
	}
	if r.fallback != nil && strings.ToLower(r.fallback.Name()) == name {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("engine not found: %s", name)
}

// Names lists registered engine names, fallback last.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.engines)+1)
	for _, e := range r.engines {
		out = append(out, e.Name())
	}
	if r.fallback != nil {
		out = append(out, r.fallback.Name())
	}
	return out
}
