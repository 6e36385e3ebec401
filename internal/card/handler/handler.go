// Package handler wires SIM card endpoints to the card service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"simtrack/internal/card/models"
	"simtrack/internal/card/service"
	"simtrack/internal/card/store"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/httputil"
	"simtrack/pkg/requestcontext"
)

// Service defines the card operations the handler exposes.
type Service interface {
	Create(ctx context.Context, code string) (*models.SimCard, error)
	BulkCreate(ctx context.Context, codes []string) (*service.BulkCreateResult, error)
	Get(ctx context.Context, cardID id.CardID) (*models.SimCard, error)
	List(ctx context.Context, filter store.Filter) ([]*models.SimCard, error)
	Update(ctx context.Context, cardID id.CardID, update models.CardUpdate) (*models.SimCard, error)
	Delete(ctx context.Context, cardID id.CardID) error
	Assign(ctx context.Context, shopID id.ShopID, count int) (*service.AssignResult, error)
}

// Handler exposes card inventory endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a card handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts card endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/simcards", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Post("/bulk", h.HandleBulkCreate)
		r.Post("/assign", h.HandleAssign)
		r.Get("/", h.HandleList)
		r.Get("/{cardID}", h.HandleGet)
		r.Put("/{cardID}", h.HandleUpdate)
		r.Delete("/{cardID}", h.HandleDelete)
	})
}

// HandleCreate handles POST /simcards requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	card, err := h.service.Create(ctx, req.Code)
	if err != nil {
		h.logError(ctx, "card creation failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, card)
}

// HandleBulkCreate handles POST /simcards/bulk requests. Partial success is
// still a 201: the body reports created and failed entries separately.
func (h *Handler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BulkCreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.BulkCreate(ctx, req.Codes)
	if err != nil {
		h.logError(ctx, "bulk card creation failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleList handles GET /simcards requests with optional status and shop_id
// filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.Filter{Status: id.CardStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("shop_id"); raw != "" {
		shopID, err := id.ParseShopID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid shop_id"))
			return
		}
		filter.ShopID = shopID
	}

	cards, err := h.service.List(ctx, filter)
	if err != nil {
		h.logError(ctx, "card listing failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cards)
}

// HandleGet handles GET /simcards/{cardID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cardID, ok := h.cardIDFromPath(w, r)
	if !ok {
		return
	}
	card, err := h.service.Get(ctx, cardID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

// HandleUpdate handles PUT /simcards/{cardID} requests with a partial update
// body. Only supplied fields take effect; the code is immutable.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cardID, ok := h.cardIDFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	update, err := req.ToCardUpdate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	card, err := h.service.Update(ctx, cardID, update)
	if err != nil {
		h.logError(ctx, "card update failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

// HandleDelete handles DELETE /simcards/{cardID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cardID, ok := h.cardIDFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, cardID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "SimCard deleted"})
}

// HandleAssign handles POST /simcards/assign requests.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	shopID, err := id.ParseShopID(req.ShopID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid shop_id"))
		return
	}

	result, err := h.service.Assign(ctx, shopID, req.Count)
	if err != nil {
		h.logError(ctx, "card assignment failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) cardIDFromPath(w http.ResponseWriter, r *http.Request) (id.CardID, bool) {
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid card id"))
		return id.CardID{}, false
	}
	return cardID, true
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	}
}
