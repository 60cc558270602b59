// Package analysis defines the contract shared by the chart-producing engines.
package analysis

import (
	"context"
	"encoding/json"

	"github.com/ycsa-dashboard/backend/internal/table"
)

// ChartContentType is the MIME type carrying Plotly figure JSON.
const ChartContentType = "application/vnd.plotly.v1+json"

// Input is everything one analysis run may read. CSVPath points into a
// request scope and is only valid until Analyze returns.
type Input struct {
	CSVPath  string
	WorkDir  string
	FileName string
	Table    *table.Table
}

// Figure is one chart payload in the order the engine produced it.
type Figure struct {
	Name    string
	Source  string
	Payload json.RawMessage
}

// Analyzer turns an uploaded table into an ordered list of chart payloads.
type Analyzer interface {
	// Name identifies the engine in logs and responses.
	Name() string
	// Analyze runs the analysis. It must honor ctx cancellation.
	Analyze(ctx context.Context, in Input) ([]Figure, error)
	// NoChartsHint is the warning shown when Analyze returns no figures.
	NoChartsHint() string
}
