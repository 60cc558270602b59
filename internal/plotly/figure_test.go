package plotly

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		wantTitle string
		wantData  int
	}{
		{"object with data", `{"data":[{"type":"bar","x":["a"],"y":[1]}],"layout":{"title":{"text":"Votes"}}}`, false, "Votes", 1},
		{"string title", `{"data":[],"layout":{"title":"Plain"}}`, false, "Plain", 0},
		{"no data key", `{"layout":{}}`, false, "", 0},
		{"json string wrapped", `"{\"data\":[{\"type\":\"pie\"}]}"`, false, "", 1},
		{"array", `[1,2,3]`, true, "", 0},
		{"data not array", `{"data":{"type":"bar"}}`, true, "", 0},
		{"layout not object", `{"data":[],"layout":[1]}`, true, "", 0},
		{"empty", ``, true, "", 0},
		{"garbage", `{not json`, true, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fig, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, fig.Title())
			assert.Len(t, fig.Data, tt.wantData)
		})
	}
}

func TestNewFigure(t *testing.T) {
	fig := New("Sentiment", "label", "count",
		Bar("comments", []string{"positive", "negative"}, []float64{3, 1}).WithColor("#2ca02c"))

	raw, err := fig.JSON()
	require.NoError(t, err)

	back, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Sentiment", back.Title())
	require.Len(t, back.Data, 1)
	assert.Equal(t, "bar", back.Data[0]["type"])

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	layout := generic["layout"].(map[string]any)
	assert.Contains(t, layout, "xaxis")
	assert.Contains(t, layout, "yaxis")
}

func TestDecode_PreservesExtraKeys(t *testing.T) {
	payload := `{"data":[{"type":"pie"}],"layout":{"title":"Mix"},"config":{"displayModeBar":false},"_meta":[1]}`

	fig, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.Contains(t, fig.Extra, "config")

	raw, err := fig.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}
