// Package request assigns and propagates request IDs.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"jwelary/pkg/requestcontext"
)

// HeaderRequestID carries the request ID between the gateway and the backend.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID reuses an incoming X-Request-ID (from the gateway) or mints a new
// one, stores it on the context and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
