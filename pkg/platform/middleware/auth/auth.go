// Package auth is the access guard: it authenticates requests by access token
// and places the verified identity on the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "jwelary/pkg/domain"
	"jwelary/pkg/platform/httputil"
	request "jwelary/pkg/platform/middleware/request"
	"jwelary/pkg/requestcontext"
)

// AccessCookieName is the cookie holding the access token.
const AccessCookieName = "auth-token"

// JWTValidator validates access tokens. Refresh tokens must be rejected.
type JWTValidator interface {
	ValidateAccessToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token ID has been denylisted.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is the identity the guard needs from a verified token.
type JWTClaims struct {
	UserID string
	Email  string
	Name   string
	Role   string
	JTI    string
}

// TokenFromRequest returns the access token from the auth-token cookie, falling
// back to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// RequireAuth rejects requests without a valid, unrevoked access token.
// revocationChecker may be nil.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token := TokenFromRequest(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", requestID,
				)
				httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", requestID,
					)
					httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteErrorStatus(w, http.StatusInternalServerError, "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					httputil.WriteErrorStatus(w, http.StatusUnauthorized, "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithEmail(ctx, claims.Email)
			ctx = requestcontext.WithRole(ctx, id.Role(claims.Role))
			ctx = requestcontext.WithTokenID(ctx, claims.JTI)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
