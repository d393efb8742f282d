package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"jwelary/pkg/platform/httputil"
	"jwelary/pkg/platform/middleware/cors"
	"jwelary/pkg/platform/middleware/metadata"
	"jwelary/pkg/platform/middleware/request"
)

// NewRouter wires the public /api surface. metricsHandler may be nil.
func NewRouter(relay *Relay, policy *cors.OriginPolicy, logger *slog.Logger, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(policy.Middleware(logger))

	r.Get("/health", httputil.Health("Jwelary Gateway is running"))
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", relay.Handler("register", true))
			r.Post("/login", relay.Handler("login", true))
			r.Post("/logout", relay.Handler("logout", true))
			r.Post("/refresh", relay.Handler("refresh", true))
			r.Get("/me", relay.Handler("me", true))
		})
		products := relay.Handler("products", false)
		r.Handle("/products", products)
		r.Handle("/products/*", products)
	})

	r.NotFound(httputil.NotFound)
	return r
}
