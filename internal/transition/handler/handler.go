// Package handler exposes the transition log read endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"simtrack/internal/transition"
	"simtrack/internal/transition/store"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/httputil"
)

// Reader is the query side of the transition log.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]*transition.Entry, error)
}

// Handler serves transition log reads.
type Handler struct {
	reader Reader
	logger *slog.Logger
}

// New constructs a transition log handler.
func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// Register mounts the log endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/logs/status-changes", h.HandleRecent)
}

// HandleRecent handles GET /logs/status-changes?limit=N requests, newest
// first, default limit 100.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := store.DefaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.reader.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "transition log read failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transition log"))
		return
	}
	if entries == nil {
		entries = []*transition.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
