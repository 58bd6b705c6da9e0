// Package httptransport wires the HTTP surface: the public verification
// endpoint, the superadmin rate-limit controls, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	paymenthandler "portalpay/internal/payment/handler"
	rladmin "portalpay/internal/ratelimit/admin"

	"portalpay/internal/platform/middleware"
	"portalpay/pkg/platform/httputil"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts.
type Deps struct {
	Logger              *slog.Logger
	Payments            *paymenthandler.Handler
	Admin               *rladmin.Handler
	SuperadminTokenHash string
	// HealthChecks maps a dependency name to its probe. Optional.
	HealthChecks map[string]HealthCheck
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		deps.Payments.RegisterRoutes(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSuperAdmin(deps.SuperadminTokenHash, deps.Logger))
			deps.Admin.RegisterRoutes(r)
		})
	})

	return r
}

const healthCheckTimeout = 2 * time.Second

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
