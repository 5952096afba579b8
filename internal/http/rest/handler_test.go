package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelpipe/mediacache/internal/cache"
	"github.com/reelpipe/mediacache/internal/fetch"
)

func newTestHandler(t *testing.T) (*CacheHandler, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)

			return
		}

		payload := make([]byte, 2048)
		copy(payload, []byte{0xFF, 0xD8, 0xFF, 0xE0})

		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	t.Cleanup(upstream.Close)

	fetcher := fetch.NewFetcher(5*time.Second, "mediacache-test/1.0")
	policy := fetch.Policy{MaxAttempts: 2, Base: time.Millisecond}

	manager, err := cache.NewManager(t.TempDir(), 24*time.Hour, fetcher, policy)
	require.NoError(t, err)

	return NewCacheHandler(manager, nil), upstream
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestHandleFetchSuccess(t *testing.T) {
	h, upstream := newTestHandler(t)
	router := h.Routes()

	rec := postJSON(t, router, "/api/fetch", fetchRequest{URL: upstream.URL + "/a.jpg"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp fetchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.FileExists(t, resp.Path)
}

func TestHandleFetchMissingURL(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Routes(), "/api/fetch", fetchRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFetchInvalidBody(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/fetch", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFetchUpstream404(t *testing.T) {
	h, upstream := newTestHandler(t)

	rec := postJSON(t, h.Routes(), "/api/fetch", fetchRequest{URL: upstream.URL + "/missing.jpg"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleCleanup(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.Routes(), "/api/cleanup", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp cleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Removed)
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
