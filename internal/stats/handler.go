package stats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"simtrack/pkg/platform/httputil"
	"simtrack/pkg/requestcontext"
)

// Handler serves the statistics endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a stats handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the statistics endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/statistics", h.HandleOverview)
	r.Get("/statistics/shops", h.HandleShopSales)
}

// HandleOverview handles GET /statistics requests.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overview, err := h.service.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "statistics overview failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

// HandleShopSales handles GET /statistics/shops requests.
func (h *Handler) HandleShopSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sales, err := h.service.ShopSales(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "shop sales statistics failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sales)
}
