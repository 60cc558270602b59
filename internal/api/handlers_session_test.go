package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/models"
	"github.com/ycsa-dashboard/backend/internal/session"
)

func succeededRun(id string) *models.RunResult {
	return &models.RunResult{
		SessionID: id,
		Engine:    "pipeline",
		Status:    models.RunStatusSucceeded,
		Charts: []models.Chart{
			{Index: 1, Title: "Chart 1", Figure: json.RawMessage(`{"data":[{"type":"pie"}]}`)},
			{Index: 2, Title: "Chart 2", Figure: json.RawMessage(`{"data":[{"type":"bar"}]}`)},
		},
	}
}

func failedRun(id string, stage analysis.Stage, msg string) *models.RunResult {
	return &models.RunResult{
		SessionID: id,
		Status:    models.RunStatusFailed,
		Charts:    []models.Chart{},
		Failure:   &models.RunFailure{Stage: string(stage), Message: "Notebook execution failed:\n" + msg},
	}
}

func TestSessionHandler_GetAndPreview(t *testing.T) {
	e := newTestServer(t, &fakeService{preview: knownSession("s1")}, true)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"previewed"`)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/sessions/s1/preview", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"header":["author","comment"]`)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Message, "missing")
}

func TestSessionHandler_GenerateCharts(t *testing.T) {
	svc := &fakeService{
		preview: knownSession("s1"),
		generate: func(ctx context.Context, id string) (*models.RunResult, error) {
			return succeededRun(id), nil
		},
	}
	e := newTestServer(t, svc, true)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/api/sessions/s1/charts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Charts, 2)
	assert.Equal(t, "Chart 1", got.Charts[0].Title)
	assert.Equal(t, "Chart 2", got.Charts[1].Title)
	assert.JSONEq(t, `{"data":[{"type":"pie"}]}`, string(got.Charts[0].Figure))
}

func TestSessionHandler_GenerateChartsMsgpackMatchesJSON(t *testing.T) {
	svc := &fakeService{
		generate: func(ctx context.Context, id string) (*models.RunResult, error) {
			r := succeededRun(id)
			r.Warning = "none"
			return r, nil
		},
	}
	e := newTestServer(t, svc, true)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/api/sessions/s1/charts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var fromJSON models.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fromJSON))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/charts", nil)
	req.Header.Set(echo.HeaderAccept, "application/msgpack, application/json;q=0.5")
	rec = do(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var fromMsgpack models.RunResult
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &fromMsgpack))

	if diff := cmp.Diff(fromJSON, fromMsgpack); diff != "" {
		t.Errorf("msgpack result differs from JSON (-json +msgpack):\n%s", diff)
	}
}

func TestSessionHandler_GenerateChartsFailures(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.RunResult
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "notebook missing",
			result:     failedRun("s1", analysis.StageLoad, "open YCSA.ipynb: no such file or directory"),
			err:        analysis.LoadFailed(assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "NOTEBOOK_LOAD_FAILED",
		},
		{
			name:       "cell raised",
			result:     failedRun("s1", analysis.StageExecute, "KeyError: 'comment'"),
			err:        analysis.ExecutionFailed(assert.AnError),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "EXECUTION_FAILED",
		},
		{
			name:       "deadline",
			result:     failedRun("s1", analysis.StageTimeout, "execution timed out after 10m0s"),
			err:        analysis.Timeout(0),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "EXECUTION_TIMEOUT",
		},
		{
			name:       "bad figure",
			result:     failedRun("s1", analysis.StageExtract, "chart 2: invalid payload"),
			err:        analysis.ExtractFailed(assert.AnError),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "CHART_DECODE_FAILED",
		},
		{
			name:       "run in progress",
			err:        session.ErrRunInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "unknown session",
			err:        session.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				generate: func(ctx context.Context, id string) (*models.RunResult, error) {
					return tt.result, tt.err
				},
			}
			e := newTestServer(t, svc, true)

			rec := do(e, httptest.NewRequest(http.MethodPost, "/api/sessions/s1/charts", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.result != nil {
				assert.Equal(t, tt.result.Failure.Message, apiErr.Message)
				assert.Regexp(t, `^Notebook execution failed:\n`, apiErr.Message)
			}
		})
	}
}

func TestSessionHandler_KeepAliveAndDelete(t *testing.T) {
	svc := &fakeService{preview: knownSession("s1")}
	e := newTestServer(t, svc, true)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/api/sessions/s1/keepalive", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, svc.touched)

	rec = do(e, httptest.NewRequest(http.MethodPost, "/api/sessions/nope/keepalive", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, svc.deleted)
}

func TestSessionHandler_DeleteDisabled(t *testing.T) {
	svc := &fakeService{preview: knownSession("s1")}
	e := newTestServer(t, svc, false)

	rec := do(e, httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svc.deleted)
}
