package httptransport

import (
	"context"
	"net/http"
	"time"

	cardstore "simtrack/internal/card/store"
	"simtrack/pkg/platform/httputil"
)

const apiVersion = "2.0.0"

// Health serves the liveness endpoints. Checks are optional; a nil check is
// reported as "disabled" rather than failing the probe.
type Health struct {
	cards          cardstore.Store
	checkDB        func(ctx context.Context) error
	checkRedis     func(ctx context.Context) error
	checkAuthority func(ctx context.Context) error
}

// NewHealth constructs the health handler. checkDB and checkRedis may be nil
// when the corresponding backend is not configured.
func NewHealth(cards cardstore.Store, checkDB, checkRedis func(ctx context.Context) error) *Health {
	return &Health{cards: cards, checkDB: checkDB, checkRedis: checkRedis}
}

// WithAuthorityCheck adds an authority reachability probe. The authority
// being down never makes the process unhealthy; it is reported for
// operators only.
func (h *Health) WithAuthorityCheck(check func(ctx context.Context) error) *Health {
	h.checkAuthority = check
	return h
}

// HandleRoot handles GET / requests with a service banner.
func (h *Health) HandleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "SimCard Management API is running",
		"version": apiVersion,
	})
}

// HandleHealth handles GET /health requests. An unhealthy backend yields 503
// with per-component detail so operators see which dependency broke.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	body["database"] = h.runCheck(ctx, h.checkDB)
	body["redis"] = h.runCheck(ctx, h.checkRedis)
	if h.checkAuthority != nil {
		if err := h.checkAuthority(ctx); err != nil {
			body["external_api"] = "unreachable"
		} else {
			body["external_api"] = "ok"
		}
	}

	counts, err := h.cards.CountByStatus(ctx)
	if err != nil {
		body["status"] = "unhealthy"
		body["simcards"] = "error"
		status = http.StatusServiceUnavailable
	} else {
		total := 0
		for _, n := range counts {
			total += n
		}
		body["simcard_count"] = total
	}

	if body["database"] == "error" || body["redis"] == "error" {
		body["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, body)
}

func (h *Health) runCheck(ctx context.Context, check func(ctx context.Context) error) string {
	if check == nil {
		return "disabled"
	}
	if err := check(ctx); err != nil {
		return "error"
	}
	return "connected"
}
