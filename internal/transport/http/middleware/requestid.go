package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hradmin/internal/requestctx"
	"hradmin/internal/transport/http/shared"
)

const headerRequestID = "X-Request-ID"

// RequestID reuses a well-formed incoming X-Request-ID or assigns a new one, and stores
// it with the client IP on the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestctx.WithRequestID(r.Context(), requestID)
		ctx = requestctx.WithClientIP(ctx, shared.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
