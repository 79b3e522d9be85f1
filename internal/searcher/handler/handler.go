// Package handler exposes conversation search, message lookup and cache
// control over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
)

const maxWindow = 50

type SearchExecutor interface {
	Execute(ctx context.Context, conv string, raw string, limit int) (*executor.SearchResult, error)
	ExecuteAll(ctx context.Context, raw string, limit int) (*executor.GlobalResult, error)
}

// ConversationLister lists searchable conversations and drops loaded ones.
type ConversationLister interface {
	Names() ([]string, error)
	Evict(name string) bool
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Cache    *cache.QueryCache
	Resolver resolver.Resolver
	Metrics  *metrics.Metrics
}

type Handler struct {
	executor     SearchExecutor
	convs        ConversationLister
	cache        *cache.QueryCache
	resolver     resolver.Resolver
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(exec SearchExecutor, convs ConversationLister, opts Options, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		convs:        convs,
		cache:        opts.Cache,
		resolver:     opts.Resolver,
		metrics:      opts.Metrics,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.SearchAll)
	mux.HandleFunc("GET /api/v1/conversations", h.ListConversations)
	mux.HandleFunc("GET /api/v1/conversations/{name}", h.GetConversation)
	mux.HandleFunc("GET /api/v1/conversations/{name}/search", h.Search)
	mux.HandleFunc("GET /api/v1/conversations/{name}/messages/{doc}", h.Message)
	mux.HandleFunc("GET /api/v1/conversations/{name}/messages/{doc}/window", h.Window)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// SearchResponse is a single-conversation result, optionally with the
// matching messages resolved.
type SearchResponse struct {
	*executor.SearchResult
	Messages []chatlog.Message `json:"messages,omitempty"`
	CacheHit bool              `json:"cache_hit"`
}

type GlobalResponse struct {
	*executor.GlobalResult
	CacheHit bool `json:"cache_hit"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	conv := r.PathValue("name")

	q, limit, ok := h.searchParams(w, r)
	if !ok {
		return
	}

	compute := func() (*executor.SearchResult, error) { return h.executor.Execute(ctx, conv, q, limit) }
	var result *executor.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.Search(ctx, conv, q, limit, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "conversation", conv, "query", q, "error", err)
		h.writeAppError(w, err)
		return
	}

	resp := SearchResponse{SearchResult: result, CacheHit: cacheHit}
	if r.URL.Query().Get("resolve") == "true" && h.resolver != nil {
		for _, hit := range result.Results {
			msg, err := h.resolver.Message(ctx, conv, hit.DocID)
			if err != nil {
				log.Warn("could not resolve hit", "conversation", conv, "doc_id", hit.DocID, "error", err)
				continue
			}
			resp.Messages = append(resp.Messages, msg)
		}
	}

	h.observe(start, cacheHit)
	log.Info("search completed",
		"conversation", conv,
		"query", q,
		"mode", result.Mode.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SearchAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, limit, ok := h.searchParams(w, r)
	if !ok {
		return
	}

	compute := func() (*executor.GlobalResult, error) { return h.executor.ExecuteAll(ctx, q, limit) }
	var result *executor.GlobalResult
	var err error
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.SearchAll(ctx, q, limit, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "query", q, "error", err)
		h.writeAppError(w, err)
		return
	}

	h.observe(start, cacheHit)
	log.Info("search completed",
		"query", q,
		"conversations", result.Conversations,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, GlobalResponse{GlobalResult: result, CacheHit: cacheHit})
}

func (h *Handler) searchParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return "", 0, false
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return "", 0, false
		}
		if h.maxResults > 0 && parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}
	return q, limit, true
}

func (h *Handler) observe(start time.Time, cacheHit bool) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	switch {
	case h.cache == nil:
		status = "disabled"
	case cacheHit:
		status = "hit"
	}
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	names, err := h.convs.Names()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	if h.resolver == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"conversations": names})
		return
	}
	convs := make([]resolver.Conversation, 0, len(names))
	for _, name := range names {
		c, err := h.resolver.Conversation(r.Context(), name)
		if err != nil {
			if !errors.Is(err, apperrors.ErrConversationNotFound) {
				h.logger.Warn("conversation metadata unavailable", "conversation", name, "error", err)
			}
			c = resolver.Conversation{Info: chatlog.Info{
				InternalName: name,
				DisplayName:  name,
				Platform:     chatlog.PlatformOf(name),
			}}
		}
		convs = append(convs, c)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	if !h.requireResolver(w) {
		return
	}
	c, err := h.resolver.Conversation(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if !h.requireResolver(w) {
		return
	}
	msg, err := h.resolver.Message(r.Context(), r.PathValue("name"), index.DocID(r.PathValue("doc")))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}

// Window returns the messages around a hit. n defaults to 5 and media is
// excluded unless include_media=true.
func (h *Handler) Window(w http.ResponseWriter, r *http.Request) {
	if !h.requireResolver(w) {
		return
	}
	n := 5
	if s := r.URL.Query().Get("n"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 || parsed > maxWindow {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("n must be an integer between 0 and %d", maxWindow))
			return
		}
		n = parsed
	}
	includeMedia := r.URL.Query().Get("include_media") == "true"
	conv, doc := r.PathValue("name"), index.DocID(r.PathValue("doc"))
	msgs, err := h.resolver.Window(r.Context(), conv, doc, n, includeMedia)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"doc_id":       doc,
		"messages":     msgs,
	})
}

func (h *Handler) requireResolver(w http.ResponseWriter) bool {
	if h.resolver == nil {
		h.writeError(w, http.StatusServiceUnavailable, "message store is not configured")
		return false
	}
	return true
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

type invalidateRequest struct {
	Conversation string `json:"conversation"`
}

// CacheInvalidate drops cached results for one conversation, or for all of
// them when the body names none. The conversation is also reloaded from
// disk on its next query.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Conversation != "" {
		h.convs.Evict(req.Conversation)
	}
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": 0})
		return
	}

	var deleted int64
	var err error
	if req.Conversation != "" {
		deleted, err = h.cache.InvalidateConversation(r.Context(), req.Conversation)
	} else {
		deleted, err = h.cache.Invalidate(r.Context())
	}
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err onto a status code. Server-side failures are not
// echoed to the client.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.writeError(w, status, "search failed")
		return
	}
	h.writeError(w, status, err.Error())
}
