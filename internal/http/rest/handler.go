// Package rest exposes the cache over HTTP for collaborators that prefer a
// daemon to a library call.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelpipe/mediacache/internal/cache"
	"github.com/reelpipe/mediacache/internal/fetch"
	"github.com/reelpipe/mediacache/internal/logctx"
	"github.com/reelpipe/mediacache/internal/media"
	"github.com/reelpipe/mediacache/internal/telemetry"
)

// CacheHandler serves fetch and cleanup operations.
type CacheHandler struct {
	manager   *cache.Manager
	telemetry *telemetry.Telemetry
}

func NewCacheHandler(manager *cache.Manager, tel *telemetry.Telemetry) *CacheHandler {
	return &CacheHandler{manager: manager, telemetry: tel}
}

// Routes builds the router for the cache API.
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogging)

	r.Post("/api/fetch", h.handleFetch)
	r.Post("/api/cleanup", h.handleCleanup)
	r.Get("/healthz", h.handleHealth)

	if h.telemetry != nil {
		r.Method(http.MethodGet, "/metrics", h.telemetry.Handler())
	}

	return r
}

type fetchRequest struct {
	URL      string  `json:"url"`
	Kind     string  `json:"kind,omitempty"`
	TTLHours float64 `json:"ttl_hours,omitempty"`
}

type fetchResponse struct {
	Path string `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *CacheHandler) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})

		return
	}

	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})

		return
	}

	path, err := h.manager.Fetch(ctx, cache.Request{
		URL:          req.URL,
		DeclaredKind: media.Kind(req.Kind),
		TTL:          time.Duration(req.TTLHours * float64(time.Hour)),
	})
	if err != nil {
		logctx.LoggerFromContext(ctx).Error("fetch failed", "url", req.URL, "err", err)
		writeJSON(w, fetchFailureStatus(err), errorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{Path: path})
}

type cleanupResponse struct {
	Removed int `json:"removed"`
}

func (h *CacheHandler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.manager.ClearExpired(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, cleanupResponse{Removed: removed})
}

func (h *CacheHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fetchFailureStatus maps a failed upstream fetch onto our own response:
// upstream 4xx becomes 422 (the URL can never be served), everything else is
// a 502.
func fetchFailureStatus(err error) int {
	var httpErr *fetch.HTTPError
	if errors.As(err, &httpErr) && httpErr.Terminal() {
		return http.StatusUnprocessableEntity
	}

	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
