package notebook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ycsa-dashboard/backend/internal/analysis"
)

// Discovery selects which cells are scanned for chart outputs.
type Discovery string

const (
	// DiscoverySourceMatch scans code cells whose source mentions SourceMarker.
	DiscoverySourceMatch Discovery = "source-match"
	// DiscoveryOutputType scans every code cell.
	DiscoveryOutputType Discovery = "output-type"
)

// SourceMarker is the substring a cell's source must contain under
// DiscoverySourceMatch.
const SourceMarker = "fig"

// ParseDiscovery validates a discovery mode name. Empty means source-match.
func ParseDiscovery(s string) (Discovery, error) {
	switch d := Discovery(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DiscoverySourceMatch, nil
	case DiscoverySourceMatch, DiscoveryOutputType:
		return d, nil
	default:
		return "", fmt.Errorf("unknown chart discovery mode %q", s)
	}
}

// Qualifies reports whether a cell is scanned under mode d.
func (d Discovery) Qualifies(c *Cell) bool {
	if !c.IsCode() {
		return false
	}
	if d == DiscoveryOutputType {
		return true
	}
	return strings.Contains(string(c.Source), SourceMarker)
}

// Extract returns chart payloads in cell order, then output order.
// Payloads are returned undecoded. Empty payloads (null, {}, [], "") are
// skipped and take no chart number.
func Extract(doc *Document, d Discovery) []analysis.Figure {
	var figs []analysis.Figure
	for idx, c := range doc.Cells {
		if !d.Qualifies(c) {
			continue
		}
		for _, out := range c.Outputs {
			if out.OutputType != OutputDisplayData {
				continue
			}
			payload, ok := out.Data[analysis.ChartContentType]
			if !ok || isEmptyPayload(payload) {
				continue
			}
			figs = append(figs, analysis.Figure{
				Name:    cellName(c, idx),
				Source:  string(c.Source),
				Payload: payload,
			})
		}
	}
	return figs
}

func cellName(c *Cell, idx int) string {
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("cell-%d", idx)
}

func isEmptyPayload(raw []byte) bool {
	switch string(bytes.Join(bytes.Fields(raw), nil)) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}
