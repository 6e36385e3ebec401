// Package handler wires shop endpoints to the shop service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"simtrack/internal/shop/models"
	"simtrack/internal/shop/service"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/httputil"
	"simtrack/pkg/requestcontext"
)

// Service defines the shop operations the handler exposes.
type Service interface {
	Create(ctx context.Context, params models.NewShopParams) (*models.Shop, error)
	Get(ctx context.Context, shopID id.ShopID) (*models.Shop, error)
	List(ctx context.Context) ([]*models.Shop, error)
	Update(ctx context.Context, shopID id.ShopID, update models.ShopUpdate) (*models.Shop, error)
	Delete(ctx context.Context, shopID id.ShopID) error
	Stats(ctx context.Context, shopID id.ShopID) (*service.Stats, error)
}

// Handler exposes shop endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a shop handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts shop endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/shops", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{shopID}", h.HandleGet)
		r.Get("/{shopID}/stats", h.HandleStats)
		r.Put("/{shopID}", h.HandleUpdate)
		r.Delete("/{shopID}", h.HandleDelete)
	})
}

// CreateRequest is the body for POST /shops.
type CreateRequest struct {
	Name       string   `json:"name"`
	OwnerName  string   `json:"ownerName"`
	OwnerPhone string   `json:"ownerPhone"`
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Region     string   `json:"region"`
}

func (r CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Region == "" {
		return errors.New("region is required")
	}
	return nil
}

// UpdateRequest is the body for PUT /shops/{shopID}. Absent fields leave the
// shop untouched.
type UpdateRequest struct {
	Name       *string  `json:"name,omitempty"`
	OwnerName  *string  `json:"ownerName,omitempty"`
	OwnerPhone *string  `json:"ownerPhone,omitempty"`
	Address    *string  `json:"address,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Status     *string  `json:"status,omitempty"`
	Region     *string  `json:"region,omitempty"`
}

func (r UpdateRequest) toShopUpdate() models.ShopUpdate {
	update := models.ShopUpdate{
		Name:       r.Name,
		OwnerName:  r.OwnerName,
		OwnerPhone: r.OwnerPhone,
		Address:    r.Address,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Region:     r.Region,
	}
	if r.Status != nil {
		status := models.ShopStatus(*r.Status)
		update.Status = &status
	}
	return update
}

// HandleCreate handles POST /shops requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	shop, err := h.service.Create(ctx, models.NewShopParams{
		Name:       req.Name,
		OwnerName:  req.OwnerName,
		OwnerPhone: req.OwnerPhone,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Region:     req.Region,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, shop)
}

// HandleList handles GET /shops requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	shops, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shops)
}

// HandleGet handles GET /shops/{shopID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopIDFromPath(w, r)
	if !ok {
		return
	}
	shop, err := h.service.Get(r.Context(), shopID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shop)
}

// HandleStats handles GET /shops/{shopID}/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopIDFromPath(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), shopID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleUpdate handles PUT /shops/{shopID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	shopID, ok := h.shopIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	shop, err := h.service.Update(ctx, shopID, req.toShopUpdate())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shop)
}

// HandleDelete handles DELETE /shops/{shopID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), shopID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Shop deleted"})
}

func (h *Handler) shopIDFromPath(w http.ResponseWriter, r *http.Request) (id.ShopID, bool) {
	shopID, err := id.ParseShopID(chi.URLParam(r, "shopID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid shop id"))
		return id.ShopID{}, false
	}
	return shopID, true
}
