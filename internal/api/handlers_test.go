package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ycsa-dashboard/backend/internal/models"
	"github.com/ycsa-dashboard/backend/internal/session"
	"github.com/ycsa-dashboard/backend/internal/web"
)

// fakeService is a DashboardService whose behavior is set per test.
type fakeService struct {
	upload   func(name string, data []byte) (models.Session, *models.TablePreview, error)
	preview  func(id string) (models.Session, *models.TablePreview, error)
	generate func(ctx context.Context, id string) (*models.RunResult, error)
	deleted  []string
	touched  []string
}

func (f *fakeService) Upload(name string, r io.Reader) (models.Session, *models.TablePreview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Session{}, nil, err
	}
	if f.upload == nil {
		return models.Session{}, nil, session.ErrNotFound
	}
	return f.upload(name, data)
}

func (f *fakeService) Session(id string) (models.Session, error) {
	sess, _, err := f.Preview(id)
	return sess, err
}

func (f *fakeService) Preview(id string) (models.Session, *models.TablePreview, error) {
	if f.preview == nil {
		return models.Session{}, nil, session.ErrNotFound
	}
	return f.preview(id)
}

func (f *fakeService) GenerateCharts(ctx context.Context, id string) (*models.RunResult, error) {
	if f.generate == nil {
		return nil, session.ErrNotFound
	}
	return f.generate(ctx, id)
}

func (f *fakeService) KeepAlive(id string) error {
	if _, err := f.Session(id); err != nil {
		return err
	}
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeService) Delete(id string) error {
	if _, err := f.Session(id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) Engine() string              { return "pipeline" }
func (f *fakeService) AllowedExtensions() []string { return []string{".csv"} }

type counter int

func (c counter) Len() int { return int(c) }

var samplePreview = &models.TablePreview{
	Rows:    2,
	Columns: 2,
	SizeKB:  0.04,
	Header:  []string{"author", "comment"},
	Head:    [][]string{{"alice", "great video"}, {"bob", "awful audio"}},
}

func knownSession(id string) func(string) (models.Session, *models.TablePreview, error) {
	return func(got string) (models.Session, *models.TablePreview, error) {
		if got != id {
			return models.Session{}, nil, session.ErrNotFound
		}
		return models.Session{ID: id, FileName: "comments.csv", Status: models.SessionStatusPreviewed}, samplePreview, nil
	}
}

func newTestServer(t *testing.T, svc *fakeService, allowDelete bool) *echo.Echo {
	t.Helper()
	e := echo.New()
	renderer, err := web.NewRenderer(web.Branding{Title: "YouTube Comment Sentiment Analysis", Footer: "YCSA Dashboard"})
	require.NoError(t, err)
	e.Renderer = renderer
	SetupMiddleware(e, MiddlewareConfig{}, nil)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Service:     svc,
		Sessions:    counter(3),
		Version:     "test",
		AllowDelete: allowDelete,
	}))
	return e
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}

func TestHealthHandler(t *testing.T) {
	e := newTestServer(t, &fakeService{}, true)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "pipeline", body["engine"])
	assert.Equal(t, float64(3), body["sessions"])
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	e := newTestServer(t, &fakeService{}, true)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_ERROR", decodeError(t, rec).Code)
}
