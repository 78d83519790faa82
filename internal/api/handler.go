// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"

	"starmap/internal/database"
	custom_errors "starmap/internal/errors"
	"starmap/internal/tools"
)

const maxLimit = 100

// Handler is the container for API dependencies.
type Handler struct {
	tools  *tools.StarTools
	runs   database.Querier
	logger *slog.Logger
}

// toolResponse is the HTTP rendering of an MCP tool result.
type toolResponse struct {
	IsError bool   `json:"is_error"`
	Text    string `json:"text"`
}

// NewRouter creates and configures a new chi router with all API routes.
// runs may be nil, in which case the sync-run endpoint reports 404.
func NewRouter(starTools *tools.StarTools, runs database.Querier, logger *slog.Logger) http.Handler {
	h := &Handler{
		tools:  starTools,
		runs:   runs,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stars/search", h.searchStars)
		r.Get("/stars/languages/{language}", h.starsByLanguage)
		r.Get("/stars/topics/{topic}", h.starsByTopic)
		r.Get("/stars/top", h.topStars)
		r.Get("/stars/recent", h.recentStars)
		r.Post("/tools/{name}", h.callTool)
		r.Get("/sync-runs", h.listSyncRuns)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/stars/search?query=Q&limit=N
func (h *Handler) searchStars(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{}
	if values := r.URL.Query(); values.Has("query") {
		args["query"] = values.Get("query")
	}
	h.query(w, r, tools.SearchStars, args)
}

// GET /v1/stars/languages/{language}?limit=N
func (h *Handler) starsByLanguage(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, tools.GetStarsByLanguage, map[string]any{"language": chi.URLParam(r, "language")})
}

// GET /v1/stars/topics/{topic}?limit=N
func (h *Handler) starsByTopic(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, tools.GetStarsByTopic, map[string]any{"topic": chi.URLParam(r, "topic")})
}

// GET /v1/stars/top?limit=N
func (h *Handler) topStars(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, tools.GetTopStars, map[string]any{})
}

// GET /v1/stars/recent?limit=N
func (h *Handler) recentStars(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, tools.GetRecentStars, map[string]any{})
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request, name string, args map[string]any) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	args["limit"] = limit

	records, err := h.tools.Query(r.Context(), name, args)
	if err != nil {
		var argErr *tools.ArgumentError
		var upstreamErr *custom_errors.ErrUpstream
		switch {
		case errors.As(err, &argErr):
			respondWithError(w, http.StatusBadRequest, argErr.Error())
		case errors.As(err, &upstreamErr):
			h.logger.Error("Failed to fetch starred repositories", "error", err)
			respondWithError(w, http.StatusBadGateway, "Failed to fetch starred repositories")
		default:
			h.logger.Error("Star query failed", "tool", name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}

// callTool runs a tool with a JSON object of arguments and returns its text
// result, mirroring the MCP surface.
// POST /v1/tools/{name}
func (h *Handler) callTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			respondWithError(w, http.StatusBadRequest, "Request body must be a JSON object of tool arguments")
			return
		}
	}

	result := h.tools.Call(r.Context(), name, args)
	respondWithJSON(w, http.StatusOK, toolResponse{IsError: result.IsError, Text: resultText(result)})
}

// GET /v1/sync-runs?limit=N
func (h *Handler) listSyncRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondWithError(w, http.StatusNotFound, "Sync ledger is disabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := h.runs.ListSyncRuns(r.Context(), int32(limit))
	if err != nil {
		h.logger.Error("Failed to list sync runs", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, runs)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "10"
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > maxLimit {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return 0, false
	}
	return limit, true
}

func resultText(r *mcp.CallToolResult) string {
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
