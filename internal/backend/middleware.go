package backend

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/middleware"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/token"
)

// RequireInternalToken verifies the gateway-minted credential for this
// service's audience and stashes the actor on the request context. Backends
// trust only this credential; they never see the identity provider's keys.
func RequireInternalToken(secret, audience string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				problem.Write(w, r, problem.KindMissingAuthentication, "a bearer token is required")
				return
			}

			claims, err := token.VerifyInternal(r.Context(), raw, secret, audience)
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("internal token rejected")
				problem.WriteError(w, r, err)
				return
			}

			ctx := WithActor(r.Context(), claims.Actor)
			ctx = middleware.WithPrincipal(ctx, claims.Actor.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAll denies the request unless the actor carries every listed scope.
func RequireAll(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if actor == nil {
				problem.Write(w, r, problem.KindMissingAuthentication, "a bearer token is required")
				return
			}
			for _, s := range scopes {
				if !actor.HasPermission(s) {
					deny(w, r, s)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny denies the request unless the actor carries at least one of the
// listed scopes.
func RequireAny(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if actor == nil {
				problem.Write(w, r, problem.KindMissingAuthentication, "a bearer token is required")
				return
			}
			for _, s := range scopes {
				if actor.HasPermission(s) {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, r, strings.Join(scopes, " or "))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, scope string) {
	log.Ctx(r.Context()).Warn().Str("scope", scope).Msg("scope denied")
	problem.Write(w, r, problem.KindInsufficientScope, "the "+scope+" scope is required for this operation")
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
