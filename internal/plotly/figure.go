// Package plotly models the subset of the Plotly figure JSON schema the
// dashboard produces and renders.
package plotly

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Figure is a Plotly figure: a list of traces and a layout. Traces are kept
// as generic objects and other top-level keys (config, ...) are preserved in
// Extra so figures from any producer survive a round trip.
type Figure struct {
	Data   []map[string]any           `json:"data"`
	Layout map[string]any             `json:"layout,omitempty"`
	Frames []any                      `json:"frames,omitempty"`
	Extra  map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known keys and keeps the rest.
func (f *Figure) UnmarshalJSON(b []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	if v, ok := all["data"]; ok {
		if err := json.Unmarshal(v, &f.Data); err != nil {
			return fmt.Errorf("data: %w", err)
		}
		delete(all, "data")
	}
	if v, ok := all["layout"]; ok {
		if err := json.Unmarshal(v, &f.Layout); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
		delete(all, "layout")
	}
	if v, ok := all["frames"]; ok {
		if err := json.Unmarshal(v, &f.Frames); err != nil {
			return fmt.Errorf("frames: %w", err)
		}
		delete(all, "frames")
	}
	if len(all) > 0 {
		f.Extra = all
	}
	return nil
}

// MarshalJSON writes known and preserved keys.
func (f Figure) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+3)
	for k, v := range f.Extra {
		out[k] = v
	}
	data := f.Data
	if data == nil {
		data = []map[string]any{}
	}
	out["data"] = data
	if f.Layout != nil {
		out["layout"] = f.Layout
	}
	if len(f.Frames) > 0 {
		out["frames"] = f.Frames
	}
	return json.Marshal(out)
}

// Decode parses a chart payload. The payload must be a JSON object; when
// present, "data" must be an array of objects and "layout" an object.
func Decode(raw []byte) (*Figure, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty figure payload")
	}
	if trimmed[0] == '"' {
		// Some producers store the figure as a JSON string.
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("invalid figure payload: %w", err)
		}
		trimmed = bytes.TrimSpace([]byte(s))
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("invalid figure payload: expected a JSON object")
	}

	var fig Figure
	if err := json.Unmarshal(trimmed, &fig); err != nil {
		return nil, fmt.Errorf("invalid figure payload: %w", err)
	}
	if fig.Data == nil {
		fig.Data = []map[string]any{}
	}
	return &fig, nil
}

// JSON encodes the figure.
func (f *Figure) JSON() (json.RawMessage, error) {
	return json.Marshal(f)
}

// Title returns the layout title text, if any.
func (f *Figure) Title() string {
	switch t := f.Layout["title"].(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}
