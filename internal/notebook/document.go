// Package notebook loads, executes and scrapes Jupyter notebook documents.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Cell types.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

// Output types.
const (
	OutputStream        = "stream"
	OutputDisplayData   = "display_data"
	OutputExecuteResult = "execute_result"
	OutputError         = "error"
)

// MultilineString is nbformat's "string or list of strings" field.
type MultilineString string

// UnmarshalJSON accepts both encodings.
func (m *MultilineString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = MultilineString(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(b, &lines); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*m = MultilineString(strings.Join(lines, ""))
	return nil
}

// Document is an nbformat v4 notebook.
type Document struct {
	Cells         []*Cell  `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// Metadata is the notebook-level metadata the runner cares about. Unknown
// keys are preserved in Extra.
type Metadata struct {
	KernelSpec   *KernelSpec                `json:"kernelspec,omitempty"`
	LanguageInfo json.RawMessage            `json:"language_info,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// KernelSpec names the kernel a notebook expects.
type KernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Language    string `json:"language,omitempty"`
}

// UnmarshalJSON keeps unknown metadata keys.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	if ks, ok := all["kernelspec"]; ok {
		m.KernelSpec = &KernelSpec{}
		if err := json.Unmarshal(ks, m.KernelSpec); err != nil {
			return fmt.Errorf("kernelspec: %w", err)
		}
		delete(all, "kernelspec")
	}
	if li, ok := all["language_info"]; ok {
		m.LanguageInfo = li
		delete(all, "language_info")
	}
	m.Extra = all
	return nil
}

// MarshalJSON writes known and preserved keys.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.KernelSpec != nil {
		out["kernelspec"] = m.KernelSpec
	}
	if len(m.LanguageInfo) > 0 {
		out["language_info"] = m.LanguageInfo
	}
	return json.Marshal(out)
}

// Cell is one notebook cell.
type Cell struct {
	ID             string          `json:"id,omitempty"`
	CellType       string          `json:"cell_type"`
	Source         MultilineString `json:"source"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ExecutionCount *int            `json:"execution_count,omitempty"`
	Outputs        []*Output       `json:"outputs,omitempty"`
}

// MarshalJSON writes the keys nbformat requires for each cell type.
func (c *Cell) MarshalJSON() ([]byte, error) {
	meta := c.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	out := map[string]any{
		"cell_type": c.CellType,
		"source":    string(c.Source),
		"metadata":  meta,
	}
	if c.ID != "" {
		out["id"] = c.ID
	}
	if c.IsCode() {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []*Output{}
		}
		out["outputs"] = outputs
		out["execution_count"] = c.ExecutionCount
	}
	return json.Marshal(out)
}

// IsCode reports whether the cell is executable.
func (c *Cell) IsCode() bool {
	return c.CellType == CellCode
}

// Output is one entry in a code cell's output list.
type Output struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name,omitempty"` // stream name
	Text           MultilineString            `json:"text,omitempty"`
	Data           map[string]json.RawMessage `json:"data,omitempty"`
	Metadata       json.RawMessage            `json:"metadata,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	EName          string                     `json:"ename,omitempty"`
	EValue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

// KernelName returns the kernelspec name or "" when absent.
func (d *Document) KernelName() string {
	if d.Metadata.KernelSpec == nil {
		return ""
	}
	return d.Metadata.KernelSpec.Name
}

// CodeCells returns the number of code cells.
func (d *Document) CodeCells() int {
	n := 0
	for _, c := range d.Cells {
		if c.IsCode() {
			n++
		}
	}
	return n
}

// ClearOutputs empties every code cell's outputs and execution count.
func (d *Document) ClearOutputs() {
	for _, c := range d.Cells {
		if c.IsCode() {
			c.Outputs = nil
			c.ExecutionCount = nil
		}
	}
}

// Parse decodes a notebook and checks it is nbformat v4.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid notebook JSON: %w", err)
	}
	if doc.NBFormat != 4 {
		return nil, fmt.Errorf("unsupported nbformat %d (need 4)", doc.NBFormat)
	}
	for i, c := range doc.Cells {
		if c == nil {
			return nil, fmt.Errorf("cell %d is null", i)
		}
		switch c.CellType {
		case CellCode, CellMarkdown, CellRaw:
		default:
			return nil, fmt.Errorf("cell %d has unknown type %q", i, c.CellType)
		}
	}
	return &doc, nil
}

// Load reads and parses a notebook file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notebook: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode serializes the document as nbformat JSON.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", " ")
}
