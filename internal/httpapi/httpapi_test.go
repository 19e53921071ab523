package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealthzReportsOK(t *testing.T) {
	api := New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
}

func createSession(t *testing.T, router http.Handler, path string) string {
	t.Helper()
	body := bytes.NewBufferString(`{"hands":1,"mc":60,"rival_style":"balanced"}`)
	req := httptest.NewRequest(http.MethodPost, path, body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	sid, ok := decodeBody(t, rr)["session"].(string)
	require.True(t, ok)
	require.NotEmpty(t, sid)
	return sid
}

func TestCreateSessionIsMountedOnBothPrefixes(t *testing.T) {
	api := New()
	router := api.Router()
	for _, prefix := range []string{"/api/v1/session/", "/api/session/"} {
		sid := createSession(t, router, prefix)
		req := httptest.NewRequest(http.MethodGet, prefix+sid+"/node", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "prefix %s", prefix)
		resp := decodeBody(t, rr)
		assert.Equal(t, false, resp["done"])
		assert.NotNil(t, resp["node"])
		assert.NotNil(t, resp["options"])
	}
}

func TestGetNodeUnknownSessionReturns404(t *testing.T) {
	api := New()
	req := httptest.NewRequest(http.MethodGet, "/api/session/does-not-exist/node", nil)
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "session not found", decodeBody(t, rr)["detail"])
}

func TestChooseMalformedBodyReturns400(t *testing.T) {
	api := New()
	router := api.Router()
	sid := createSession(t, router, "/api/session/")

	req := httptest.NewRequest(http.MethodPost, "/api/session/"+sid+"/choose", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChooseOutOfRangeReturns400(t *testing.T) {
	api := New()
	router := api.Router()
	sid := createSession(t, router, "/api/session/")

	req := httptest.NewRequest(http.MethodPost, "/api/session/"+sid+"/choose", bytes.NewBufferString(`{"choice":999}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["detail"], "invalid choice")
}

func TestCreateSessionWithEmptyBodyFallsBackToDefaults(t *testing.T) {
	api := New()
	router := api.Router()
	req := httptest.NewRequest(http.MethodPost, "/api/session/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSummaryUnknownSessionReturns404(t *testing.T) {
	api := New()
	req := httptest.NewRequest(http.MethodGet, "/api/session/nope/summary", nil)
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
