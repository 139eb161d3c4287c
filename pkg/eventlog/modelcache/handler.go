package modelcache

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/randalmurphal/eventlog/pkg/eventlog/schema"
)

// maxRefreshBytes bounds a PUT body.
const maxRefreshBytes = 1 << 20

// Handler serves models over HTTP:
//
//	GET /models/{name}  resolved model as JSON, Last-Modified from ModifiedTime;
//	                    ?pretty indents the document for display
//	PUT /models/{name}  Refresh with the request body (the authority's save hook)
//
// GET always answers 200; an unresolvable model is served as {}.
type Handler struct {
	cache  *Cache
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates a Handler for cache.
func NewHandler(cache *Cache, logger *slog.Logger) *Handler {
	h := &Handler{cache: cache, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /models/{name}", h.get)
	h.mux.HandleFunc("PUT /models/{name}", h.put)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	model, outcome := h.cache.Resolve(r.Context(), name)
	mtime := h.cache.ModifiedTime(r.Context(), name)

	body, err := json.Marshal(model)
	if err == nil && r.URL.Query().Has("pretty") {
		body, err = schema.Beautify(body)
	}
	if err != nil {
		if h.logger != nil {
			h.logger.Error("encode model failed",
				slog.String("model", name),
				slog.String("error", err.Error()),
			)
		}
		http.Error(w, "encode model failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", mtime.UTC().Format(http.TimeFormat))
	w.Header().Set("X-Model-Outcome", outcome.String())
	if _, err := w.Write(body); err != nil && h.logger != nil {
		h.logger.Warn("write model response failed",
			slog.String("model", name),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRefreshBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := schema.ValidateDocument(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.cache.Refresh(r.Context(), name, body, h.cache.now()); err != nil {
		if h.logger != nil {
			h.logger.Error("model refresh failed",
				slog.String("model", name),
				slog.String("error", err.Error()),
			)
		}
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
