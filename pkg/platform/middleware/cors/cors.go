// Package cors enforces the browser origin allow-list. Disallowed origins are
// rejected before any route handler runs.
package cors

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"jwelary/pkg/platform/httputil"
	request "jwelary/pkg/platform/middleware/request"
)

var defaultDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
}

var (
	devHosts = []string{"localhost", "127.0.0.1"}
	devPorts = []string{"3000", "3001"}
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization, X-Request-ID"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy builds a policy from configured origins plus the local
// development origins.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{})}
	for _, o := range slices.Concat(origins, defaultDevOrigins) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Origins lists the explicitly allowed origins, sorted.
func (p *OriginPolicy) Origins() []string {
	out := make([]string, 0, len(p.allowed))
	for o := range p.allowed {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

// Allowed reports whether a request with this Origin header may proceed.
// An empty origin (non-browser client) is allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return slices.Contains(devHosts, u.Hostname()) && slices.Contains(devPorts, u.Port())
}

// Middleware applies the policy. Allowed origins get credentialed CORS headers
// and preflight requests are answered directly.
func (p *OriginPolicy) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !p.Allowed(origin) {
				logger.WarnContext(r.Context(), "CORS blocked origin",
					"origin", origin,
					"request_id", request.GetRequestID(r.Context()),
				)
				httputil.WriteErrorStatus(w, http.StatusForbidden, "Not allowed by CORS")
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", allowMethods)
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
