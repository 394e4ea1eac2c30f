// Package api provides HTTP handlers for the track API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/singleflight"

	"nextsoundwave/pkg/appctx"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/services"
	"nextsoundwave/pkg/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains all API handlers.
type Handlers struct {
	ctx      *appctx.Context
	log      *logging.Logger
	resolves singleflight.Group
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /favicon.ico", http.NotFound)

	mux.HandleFunc("POST /api/resolve", h.handleResolve)
	mux.HandleFunc("GET /api/search", h.handleSearch)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/health/extraction", h.handleExtractionHealth)

	if dir := h.ctx.Config.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
		} else {
			h.log.Info("static directory not found, frontend disabled", "dir", dir)
		}
	}
}

// resolveRequest is the body of POST /api/resolve.
type resolveRequest struct {
	URL     string `json:"url"`
	Backend string `json:"backend,omitempty"`
}

// trackResponse is the track schema consumed by the player.
type trackResponse struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Duration     int                 `json:"duration"`
	AudioURL     string              `json:"audio_url"`
	EmbedURL     string              `json:"embed_url"`
	InvidiousURL string              `json:"invidious_url"`
	Related      []types.RelatedItem `json:"related"`
}

func newTrackResponse(t types.Track) trackResponse {
	related := t.Related
	if related == nil {
		related = []types.RelatedItem{}
	}
	return trackResponse{
		ID:           t.ID.String(),
		Title:        t.Title,
		Duration:     t.Duration,
		AudioURL:     t.AudioURL,
		EmbedURL:     t.EmbedURL,
		InvidiousURL: t.FallbackEmbedURL,
		Related:      related,
	}
}

type searchResponse struct {
	Query   string               `json:"query"`
	Results []types.SearchResult `json:"results"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// handleIndex returns service information.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"service": "NextSoundWave",
		"status":  "running",
		"version": appctx.Version,
	})
}

// handleResolve resolves a YouTube URL to a playable track. Identical
// requests in flight share one extraction.
func (h *Handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "Validation error", "request body must be JSON with a url field")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "Validation error", "url is required")
		return
	}

	preferred := mo.None[types.BackendKind]()
	if req.Backend != "" {
		kind, ok := types.ParseBackendKind(req.Backend)
		if !ok {
			h.writeError(w, http.StatusUnprocessableEntity, "Validation error", "unknown backend: "+req.Backend)
			return
		}
		preferred = mo.Some(kind)
	}

	key := req.URL + "\x00" + req.Backend
	// The shared extraction must outlive any single caller.
	extractCtx := context.WithoutCancel(r.Context())
	ch := h.resolves.DoChan(key, func() (any, error) {
		return h.ctx.Extractor.Extract(extractCtx, req.URL, preferred), nil
	})

	var outcome types.Outcome
	select {
	case res := <-ch:
		outcome = res.Val.(types.Outcome)
		if res.Shared {
			h.requestLog(r).Debug("resolve shared with concurrent request", "url", req.URL)
		}
	case <-r.Context().Done():
		return
	}

	if track, ok := outcome.Track(); ok {
		h.writeJSON(w, http.StatusOK, newTrackResponse(track))
		return
	}

	failure, _ := outcome.Failure()
	switch failure.Kind {
	case types.FailureInvalidInput:
		h.writeError(w, http.StatusBadRequest, "Invalid URL", failure.Message)
	case types.FailureExtraction, types.FailureNoBackend:
		h.writeError(w, http.StatusInternalServerError, "Extraction failed", failure.Message)
	default:
		h.writeUnexpected(w, r, errors.New(failure.Message))
	}
}

// handleSearch searches for videos.
func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < services.MinQueryLength {
		h.writeError(w, http.StatusBadRequest, "Invalid query", "Search query must be at least 2 characters")
		return
	}

	limit := services.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "Validation error", "limit must be an integer")
			return
		}
		limit = lo.Clamp(n, 1, services.MaxSearchLimit)
	}

	results, err := h.ctx.Search.Search(r.Context(), query, limit)
	if err != nil {
		if errors.Is(err, types.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
			return
		}
		h.requestLog(r).WithError(err).Error("search failed", "query", query)
		h.writeError(w, http.StatusInternalServerError, "Search failed", h.detail(err))
		return
	}
	if results == nil {
		results = []types.SearchResult{}
	}

	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}

// handleHealth is a liveness check.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleExtractionHealth reports backend availability.
func (h *Handlers) handleExtractionHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ctx.Extractor.HealthCheck(r.Context()))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, title, detail string) {
	h.writeJSON(w, status, errorResponse{Error: title, Detail: detail})
}

func (h *Handlers) writeUnexpected(w http.ResponseWriter, r *http.Request, err error) {
	h.requestLog(r).WithError(err).Error("unexpected error")
	h.writeError(w, http.StatusInternalServerError, "Internal server error", h.detail(err))
}

func (h *Handlers) requestLog(r *http.Request) *logging.Logger {
	return logging.FromContextOr(r.Context(), h.log)
}

// detail hides error text outside debug mode.
func (h *Handlers) detail(err error) string {
	if h.ctx.Config.Debug {
		return err.Error()
	}
	return "An unexpected error occurred"
}
