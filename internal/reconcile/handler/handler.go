// Package handler exposes the reconciliation endpoints: the single-card
// check and the bulk auto-check.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"simtrack/internal/reconcile"
	id "simtrack/pkg/domain"
	dErrors "simtrack/pkg/domain-errors"
	"simtrack/pkg/platform/httputil"
	"simtrack/pkg/requestcontext"
)

// Checker reconciles a single card against the authority.
type Checker interface {
	Reconcile(ctx context.Context, cardID id.CardID) (*reconcile.Outcome, error)
}

// BatchChecker reconciles an explicit list of cards.
type BatchChecker interface {
	CheckMany(ctx context.Context, cardIDs []id.CardID) (*reconcile.Report, error)
}

// Handler serves reconciliation requests.
type Handler struct {
	checker Checker
	batch   BatchChecker
	logger  *slog.Logger
}

// New constructs a reconciliation handler.
func New(checker Checker, batch BatchChecker, logger *slog.Logger) *Handler {
	return &Handler{checker: checker, batch: batch, logger: logger}
}

// Register mounts the check endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/simcards/{cardID}/check-status", h.HandleCheck)
	r.Post("/simcards/auto-check", h.HandleAutoCheck)
}

// AutoCheckRequest is the bulk check payload.
type AutoCheckRequest struct {
	SimCards []AutoCheckCard `json:"simCards"`
}

// AutoCheckCard identifies one card to check.
type AutoCheckCard struct {
	ID id.CardID `json:"id"`
}

// Validate implements the httputil Validator interface.
func (r AutoCheckRequest) Validate() error {
	if len(r.SimCards) == 0 {
		return dErrors.New(dErrors.CodeValidation, "simCards must not be empty")
	}
	return nil
}

// HandleCheck handles GET /simcards/{cardID}/check-status requests. The
// response carries the merged card together with the raw authority result,
// including authority failures (externalData.status "error").
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid card id"))
		return
	}

	outcome, err := h.checker.Reconcile(ctx, cardID)
	if err != nil {
		h.logError(ctx, "status check failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// HandleAutoCheck handles POST /simcards/auto-check requests.
func (h *Handler) HandleAutoCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AutoCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cardIDs := make([]id.CardID, 0, len(req.SimCards))
	for _, c := range req.SimCards {
		cardIDs = append(cardIDs, c.ID)
	}

	report, err := h.batch.CheckMany(ctx, cardIDs)
	if err != nil {
		h.logError(ctx, "auto-check failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	}
}
