package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ycsa-dashboard/backend/internal/models"
)

func testBranding() Branding {
	return Branding{
		Title:       "YouTube Comment Sentiment Analysis",
		SidebarInfo: "Upload a CSV file of YouTube comments.",
		SidebarTips: "**Tips:**\n\n- Upload .csv file",
		Footer:      "YCSA Dashboard",
	}
}

func render(t *testing.T, name string, page Page) string {
	t.Helper()
	r, err := NewRenderer(testBranding())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, page, nil))
	return buf.String()
}

func TestRenderer_Index(t *testing.T) {
	out := render(t, PageIndex, Page{Extensions: []string{".csv"}})

	assert.Contains(t, out, "<title>YouTube Comment Sentiment Analysis</title>")
	assert.Contains(t, out, "📂 Upload your CSV file")
	assert.Contains(t, out, `accept=".csv"`)
	assert.Contains(t, out, "<strong>Tips:</strong>")
	assert.Contains(t, out, "<li>Upload .csv file</li>")
	assert.Contains(t, out, "YCSA Dashboard")
	assert.NotContains(t, out, "Generate Charts")
}

func TestRenderer_Logo(t *testing.T) {
	out := render(t, PageIndex, Page{})
	assert.NotContains(t, out, `class="logo"`)

	b := testBranding()
	b.LogoURL = "/static/YCSA_logo.png"
	r, err := NewRenderer(b)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageIndex, Page{}, nil))
	assert.Contains(t, buf.String(), `<img class="logo" src="/static/YCSA_logo.png"`)
}

func TestRenderer_SessionPreview(t *testing.T) {
	out := render(t, PageSession, Page{
		Session: &models.Session{ID: "abc123"},
		Preview: &models.TablePreview{
			Rows:    42,
			Columns: 2,
			SizeKB:  1.5,
			Header:  []string{"author", "comment"},
			Head:    [][]string{{"alice", "<b>loved it</b>"}},
		},
	})

	assert.Contains(t, out, "🔎 File Preview")
	assert.Contains(t, out, "<th>author</th>")
	assert.Contains(t, out, "&lt;b&gt;loved it&lt;/b&gt;")
	assert.Contains(t, out, ">42<")
	assert.Contains(t, out, "1.50")
	assert.Contains(t, out, "File Size (KB)")
	assert.Contains(t, out, `action="/sessions/abc123/charts"`)
	assert.Contains(t, out, "📈 Generate Charts")
}

func TestRenderer_Charts(t *testing.T) {
	out := render(t, PageSession, Page{
		Session: &models.Session{ID: "abc123"},
		Result: &models.RunResult{
			Status: models.RunStatusSucceeded,
			Charts: []models.Chart{
				{Index: 1, Title: "Chart 1", Figure: json.RawMessage(`{"data":[],"layout":{"title":{"text":"a"}}}`)},
				{Index: 2, Title: "Chart 2", Figure: json.RawMessage(`{"data":[]}`)},
			},
		},
	})

	assert.Contains(t, out, "✅ Analysis complete!")
	assert.Contains(t, out, "📊 Generated Charts:")
	assert.Contains(t, out, "<details open class=\"chart\">")
	assert.Contains(t, out, "📈 Chart 1")
	assert.Contains(t, out, "📈 Chart 2")
	assert.Contains(t, out, `{"data":[],"layout":{"title":{"text":"a"}}}`)
	assert.Less(t, strings.Index(out, "Chart 1"), strings.Index(out, "Chart 2"))
}

func TestRenderer_WarningAndFailure(t *testing.T) {
	out := render(t, PageSession, Page{
		Session: &models.Session{ID: "s"},
		Result:  &models.RunResult{Status: models.RunStatusSucceeded, Warning: "No charts were found."},
	})
	assert.Contains(t, out, "⚠️ No charts were found.")
	assert.NotContains(t, out, "Generated Charts")

	out = render(t, PageSession, Page{
		Session: &models.Session{ID: "s"},
		Result: &models.RunResult{
			Status:  models.RunStatusFailed,
			Failure: &models.RunFailure{Stage: "execute", Message: "Notebook execution failed:\nboom"},
		},
	})
	assert.Contains(t, out, "❌ Notebook execution failed:\nboom")
	assert.NotContains(t, out, "Analysis complete")
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := NewRenderer(testBranding())
	require.NoError(t, err)
	assert.Error(t, r.Render(io.Discard, "missing", Page{}, nil))
	assert.Error(t, r.Render(io.Discard, PageIndex, 42, nil))
}

func TestFigureJS_EscapesMarkup(t *testing.T) {
	js := FigureJS(json.RawMessage(`{"layout":{"title":"</script><script>alert(1)</script>"}}`))
	assert.NotContains(t, string(js), "</script>")
	assert.Contains(t, string(js), `\u003c/script\u003e`)
	assert.Equal(t, "{}", string(FigureJS(nil)))
}

func TestRegisterStaticRoutes(t *testing.T) {
	e := echo.New()
	RegisterStaticRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#cc2b5e")
}
