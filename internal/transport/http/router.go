// Package httptransport assembles the backend HTTP API: the auth and catalog
// handlers behind the shared middleware stack.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	authhandler "jwelary/internal/auth/handler"
	authservice "jwelary/internal/auth/service"
	cataloghandler "jwelary/internal/catalog/handler"
	jwttoken "jwelary/internal/jwt_token"
	"jwelary/pkg/platform/httputil"
	"jwelary/pkg/platform/middleware/admin"
	"jwelary/pkg/platform/middleware/auth"
	"jwelary/pkg/platform/middleware/cors"
	"jwelary/pkg/platform/middleware/metadata"
	"jwelary/pkg/platform/middleware/request"
	"jwelary/pkg/platform/middleware/requesttime"
)

// Dependencies are the services the backend router exposes.
type Dependencies struct {
	Auth          *authservice.Service
	Tokens        *jwttoken.JWTService
	Catalog       cataloghandler.Service
	Policy        *cors.OriginPolicy
	Logger        *slog.Logger
	SecureCookies bool

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Clock pins each request's time. Defaults to time.Now.
	Clock func() time.Time
}

// NewRouter wires the backend routes.
func NewRouter(deps Dependencies) http.Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.WithClock(clock))
	r.Use(metadata.ClientMetadata)
	r.Use(deps.Policy.Middleware(deps.Logger))

	r.Get("/health", httputil.Health("Jwelary Backend API is running"))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	requireAuth := auth.RequireAuth(jwttoken.NewJWTServiceAdapter(deps.Tokens), deps.Auth, deps.Logger)
	requireAdmin := admin.RequireAdmin(deps.Logger, deps.Auth)

	authhandler.New(deps.Auth, deps.Logger, deps.SecureCookies).Register(r, requireAuth)
	cataloghandler.New(deps.Catalog, deps.Logger).Register(r, requireAuth, requireAdmin)

	r.NotFound(httputil.NotFound)
	return r
}
