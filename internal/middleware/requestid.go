// Package middleware implements the gateway's cross-cutting request
// pipeline: request identity, security headers, timing, structured logging,
// CORS, rate limiting, and body caps. The chain order is fixed; see the
// gateway router for the canonical composition.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID carries the request identity on requests and responses.
const HeaderRequestID = "X-Request-ID"

type ctxKey string

const (
	requestIDKey ctxKey = "requestId"
	principalKey ctxKey = "principal"
)

// inboundIDPattern limits which client-supplied request IDs we honor.
var inboundIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,128}$`)

// RequestID assigns a request identity: the inbound X-Request-ID when it
// conforms, otherwise a fresh UUID. The ID is echoed on the response,
// stored in context, and stamped on the request-scoped logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !inboundIDPattern.MatchString(id) {
			id = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		logger := log.Ctx(ctx).With().Str("requestId", id).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request identity from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithPrincipal records the authenticated principal for downstream
// consumers (rate limiting, logging).
func WithPrincipal(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, principalKey, subject)
}

// Principal retrieves the authenticated principal, empty if anonymous.
func Principal(ctx context.Context) string {
	if s, ok := ctx.Value(principalKey).(string); ok {
		return s
	}
	return ""
}
