// Package httptransport assembles the HTTP surface: middleware chain,
// public endpoints, and the authenticated API group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"simtrack/internal/platform/metrics"
	"simtrack/internal/platform/middleware"
)

// Registrar mounts a feature's routes on a router group.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router mounts. Public registrars stay outside
// the token check, protected ones go behind it.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator
	Health    *Health

	Public    []Registrar
	Protected []Registrar
}

// NewRouter builds the full HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))

	r.Get("/", deps.Health.HandleRoot)
	r.Get("/health", deps.Health.HandleHealth)
	r.Get("/healthz", deps.Health.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	for _, reg := range deps.Public {
		reg.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if deps.Validator != nil {
			r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		}
		for _, reg := range deps.Protected {
			reg.Register(r)
		}
	})

	return r
}
