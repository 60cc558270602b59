package notebook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycsa-dashboard/backend/internal/testutil"
)

func TestParse(t *testing.T) {
	t.Run("multiline sources are joined", func(t *testing.T) {
		raw := `{
 "cells": [
  {"cell_type": "code", "source": ["import plotly\n", "fig1 = 1"], "metadata": {}, "outputs": [], "execution_count": null},
  {"cell_type": "markdown", "source": "# Title", "metadata": {}}
 ],
 "metadata": {"kernelspec": {"name": "python3", "display_name": "Python 3"}, "custom": {"a": 1}},
 "nbformat": 4,
 "nbformat_minor": 5
}`
		doc, err := Parse([]byte(raw))
		require.NoError(t, err)
		require.Len(t, doc.Cells, 2)
		assert.Equal(t, MultilineString("import plotly\nfig1 = 1"), doc.Cells[0].Source)
		assert.True(t, doc.Cells[0].IsCode())
		assert.False(t, doc.Cells[1].IsCode())
		assert.Equal(t, "python3", doc.KernelName())
		assert.Equal(t, 1, doc.CodeCells())
		assert.Contains(t, doc.Metadata.Extra, "custom")
	})

	t.Run("rejects invalid documents", func(t *testing.T) {
		cases := map[string]string{
			"not json":       `{"cells": [`,
			"nbformat 3":     `{"cells": [], "metadata": {}, "nbformat": 3, "nbformat_minor": 0}`,
			"unknown cell":   `{"cells": [{"cell_type": "widget", "source": ""}], "metadata": {}, "nbformat": 4}`,
			"null cell":      `{"cells": [null], "metadata": {}, "nbformat": 4}`,
			"bad source":     `{"cells": [{"cell_type": "code", "source": 42}], "metadata": {}, "nbformat": 4}`,
			"bad kernelspec": `{"cells": [], "metadata": {"kernelspec": "python3"}, "nbformat": 4}`,
		}
		for name, raw := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := Parse([]byte(raw))
				assert.Error(t, err)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.ipynb"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("valid file", func(t *testing.T) {
		path := testutil.WriteNotebook(t, dir, "ok.ipynb", "python3",
			testutil.CodeCell("fig1.show()"),
		)
		doc, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})
}

func TestEncodeWritesRequiredKeys(t *testing.T) {
	n := 3
	doc := &Document{
		NBFormat:      4,
		NBFormatMinor: 5,
		Metadata:      Metadata{KernelSpec: &KernelSpec{Name: "python3"}},
		Cells: []*Cell{
			{CellType: CellCode, Source: "x = 1"},
			{CellType: CellCode, Source: "print(x)", ExecutionCount: &n},
			{CellType: CellMarkdown, Source: "notes"},
		},
	}
	data, err := doc.Encode()
	require.NoError(t, err)

	var raw struct {
		Cells []map[string]json.RawMessage `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Cells, 3)
	assert.JSONEq(t, "null", string(raw.Cells[0]["execution_count"]))
	assert.JSONEq(t, "[]", string(raw.Cells[0]["outputs"]))
	assert.JSONEq(t, "3", string(raw.Cells[1]["execution_count"]))
	assert.NotContains(t, raw.Cells[2], "outputs")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "python3", back.KernelName())
}

func TestClearOutputs(t *testing.T) {
	n := 1
	doc := &Document{Cells: []*Cell{{
		CellType:       CellCode,
		ExecutionCount: &n,
		Outputs:        []*Output{{OutputType: OutputStream, Text: "hi"}},
	}}}
	doc.ClearOutputs()
	assert.Nil(t, doc.Cells[0].Outputs)
	assert.Nil(t, doc.Cells[0].ExecutionCount)
}
