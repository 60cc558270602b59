package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycsa-dashboard/backend/internal/testutil"
)

func extractDoc(t *testing.T) *Document {
	doc, err := Parse(testutil.Notebook("python3",
		testutil.MarkdownCell("fig captions live here").WithOutputs(),
		testutil.CodeCell("fig1 = px.pie(df)\nfig1.show()").WithID("pie").WithOutputs(
			testutil.StreamOutput("fig1 ready"),
			testutil.PlotlyOutput(testutil.Figure("one")),
		),
		testutil.CodeCell("chart = px.bar(df)\nchart.show()").WithOutputs(
			testutil.PlotlyOutput(testutil.Figure("untracked")),
		),
		testutil.CodeCell("# fig2 and fig3\nshow(fig2)\nshow(fig3)").WithOutputs(
			testutil.PlotlyOutput(testutil.Figure("two")),
			map[string]any{"output_type": "execute_result", "data": map[string]any{
				"application/vnd.plotly.v1+json": testutil.Figure("result"),
			}, "metadata": map[string]any{}, "execution_count": 3},
			testutil.PlotlyOutput(testutil.Figure("three")),
		),
		testutil.CodeCell("fig4").WithOutputs(
			map[string]any{"output_type": "display_data", "data": map[string]any{"text/plain": "Figure()"}, "metadata": map[string]any{}},
		),
	))
	require.NoError(t, err)
	return doc
}

func TestExtract_SourceMatch(t *testing.T) {
	figs := Extract(extractDoc(t), DiscoverySourceMatch)
	require.Len(t, figs, 3)
	assert.Contains(t, string(figs[0].Payload), `"one"`)
	assert.Contains(t, string(figs[1].Payload), `"two"`)
	assert.Contains(t, string(figs[2].Payload), `"three"`)
	assert.Equal(t, "pie", figs[0].Name)
	assert.Equal(t, "cell-3", figs[1].Name)
}

func TestExtract_OutputType(t *testing.T) {
	figs := Extract(extractDoc(t), DiscoveryOutputType)
	require.Len(t, figs, 4)
	assert.Contains(t, string(figs[1].Payload), `"untracked"`)
}

func TestExtract_Empty(t *testing.T) {
	doc, err := Parse(testutil.Notebook("python3", testutil.CodeCell("print('no charts')")))
	require.NoError(t, err)
	assert.Empty(t, Extract(doc, DiscoveryOutputType))
}

func TestExtract_SkipsEmptyPayloads(t *testing.T) {
	doc, err := Parse(testutil.Notebook("python3",
		testutil.CodeCell("fig0.show()").WithOutputs(testutil.PlotlyOutput(map[string]any{})),
		testutil.CodeCell("fig1.show()").WithOutputs(
			testutil.PlotlyOutput(nil),
			testutil.PlotlyOutput(testutil.Figure("real")),
			testutil.PlotlyOutput([]any{}),
		),
		testutil.CodeCell("fig2.show()").WithOutputs(testutil.PlotlyOutput(""), testutil.PlotlyOutput(nil)),
	))
	require.NoError(t, err)

	figs := Extract(doc, DiscoverySourceMatch)
	require.Len(t, figs, 1)
	assert.Contains(t, string(figs[0].Payload), `"real"`)
}

func TestIsEmptyPayload(t *testing.T) {
	for _, raw := range []string{"", " ", "null", "{}", "{ }", "[]", `""`} {
		assert.True(t, isEmptyPayload([]byte(raw)), raw)
	}
	for _, raw := range []string{`{"data":[]}`, `"x"`, `[1]`} {
		assert.False(t, isEmptyPayload([]byte(raw)), raw)
	}
}

func TestParseDiscovery(t *testing.T) {
	d, err := ParseDiscovery("")
	require.NoError(t, err)
	assert.Equal(t, DiscoverySourceMatch, d)

	d, err = ParseDiscovery(" Output-Type ")
	require.NoError(t, err)
	assert.Equal(t, DiscoveryOutputType, d)

	_, err = ParseDiscovery("tags")
	assert.Error(t, err)
}
