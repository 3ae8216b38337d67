package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/format-smormat/backend/internal/intake"
	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/records"
	"github.com/format-smormat/backend/internal/testutil"
)

const waitTimeout = 2 * time.Second

type fixture struct {
	store   *records.Store
	manager *intake.Manager
	conv    *testutil.FakeConverter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := records.NewStore()
	conv := &testutil.FakeConverter{}
	return &fixture{
		store:   store,
		manager: intake.NewManager(store, conv, intake.Options{}, zaptest.NewLogger(t)),
		conv:    conv,
	}
}

func completedRecord(id, name, content string) models.ProcessedFile {
	return models.NewProcessedFile(id, id+".html", 2048, time.UnixMilli(1700000000000)).
		WithName(name).
		WithContent(content)
}

func newContext(method, target string, body *httptestBody) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body.reader)
		req.Header.Set(echo.HeaderContentType, body.contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func requireAPIError(t *testing.T, err error, status int, code string) *APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
