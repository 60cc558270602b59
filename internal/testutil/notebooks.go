// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ycsa-dashboard/backend/internal/analysis"
)

// Cell is an nbformat cell under construction.
type Cell map[string]any

// CodeCell returns an unexecuted code cell.
func CodeCell(src string) Cell {
	return Cell{
		"cell_type":       "code",
		"source":          src,
		"metadata":        map[string]any{},
		"outputs":         []any{},
		"execution_count": nil,
	}
}

// MarkdownCell returns a markdown cell.
func MarkdownCell(src string) Cell {
	return Cell{
		"cell_type": "markdown",
		"source":    src,
		"metadata":  map[string]any{},
	}
}

// WithOutputs sets pre-existing outputs on a code cell.
func (c Cell) WithOutputs(outs ...map[string]any) Cell {
	list := make([]any, len(outs))
	for i, o := range outs {
		list[i] = o
	}
	c["outputs"] = list
	return c
}

// WithID sets the cell id.
func (c Cell) WithID(id string) Cell {
	c["id"] = id
	return c
}

// Figure returns a minimal Plotly figure with a title.
func Figure(title string) map[string]any {
	return map[string]any{
		"data":   []any{map[string]any{"type": "bar", "x": []any{"a", "b"}, "y": []any{1, 2}}},
		"layout": map[string]any{"title": map[string]any{"text": title}},
	}
}

// PlotlyOutput wraps a payload as a display_data chart output.
func PlotlyOutput(payload any) map[string]any {
	return map[string]any{
		"output_type": "display_data",
		"data":        map[string]any{analysis.ChartContentType: payload},
		"metadata":    map[string]any{},
	}
}

// StreamOutput returns a stdout stream output.
func StreamOutput(text string) map[string]any {
	return map[string]any{"output_type": "stream", "name": "stdout", "text": text}
}

// Notebook encodes an nbformat v4 document for the given kernel.
func Notebook(kernel string, cells ...Cell) []byte {
	if cells == nil {
		cells = []Cell{}
	}
	doc := map[string]any{
		"cells": cells,
		"metadata": map[string]any{
			"kernelspec": map[string]any{"name": kernel, "display_name": kernel},
		},
		"nbformat":       4,
		"nbformat_minor": 5,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// WriteNotebook writes a notebook into dir and returns its path.
func WriteNotebook(tb testing.TB, dir, name, kernel string, cells ...Cell) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Notebook(kernel, cells...), 0o644); err != nil {
		tb.Fatalf("Failed to write notebook: %v", err)
	}
	return path
}

// WriteFakeJupyter writes a shell script standing in for the jupyter
// executable. It fails unless CSV_PATH names an existing file, then prints
// executed to stdout. With executed nil it prints errText to stderr and
// exits 1.
func WriteFakeJupyter(tb testing.TB, executed []byte, errText string) string {
	tb.Helper()
	if runtime.GOOS == "windows" {
		tb.Skip("fake jupyter needs a POSIX shell")
	}
	dir := tb.TempDir()
	out := filepath.Join(dir, "executed.ipynb")
	if err := os.WriteFile(out, executed, 0o644); err != nil {
		tb.Fatalf("Failed to write executed notebook: %v", err)
	}
	script := "#!/bin/sh\n" +
		"test -f \"$CSV_PATH\" || { echo \"CSV_PATH not set\" >&2; exit 2; }\n"
	if executed == nil {
		script += "echo '" + errText + "' >&2\nexit 1\n"
	} else {
		script += "cat '" + out + "'\n"
	}
	path := filepath.Join(dir, "jupyter")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		tb.Fatalf("Failed to write fake jupyter: %v", err)
	}
	return path
}
