// Package admin gates privileged routes on the ADMIN role claim.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/httputil"
	request "jwelary/pkg/platform/middleware/request"
	"jwelary/pkg/requestcontext"
)

// DenialObserver is told about authenticated users refused admin access.
type DenialObserver interface {
	AdminAccessDenied(ctx context.Context, userID id.UserID, path string)
}

// RequireAdmin must be mounted after auth.RequireAuth. A request without an
// authenticated identity is answered 401, never passed through. observer may
// be nil.
func RequireAdmin(logger *slog.Logger, observer DenialObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				logger.ErrorContext(ctx, "admin guard reached without authentication",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !requestcontext.Role(ctx).IsAdmin() {
				logger.WarnContext(ctx, "admin access denied",
					"user_id", userID,
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				if observer != nil {
					observer.AdminAccessDenied(ctx, userID, r.URL.Path)
				}
				httputil.WriteErrorStatus(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
