package testutil

import (
	"context"
	"net/http"

	id "jwelary/pkg/domain"
	"jwelary/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the access guard would.
// Invalid IDs are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithIdentity adds user ID, role and token ID to the request context.
func WithIdentity(req *http.Request, userID id.UserID, role id.Role, jti string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	ctx = requestcontext.WithTokenID(ctx, jti)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}
