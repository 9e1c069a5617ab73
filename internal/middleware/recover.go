package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// Recover converts handler panics into a problem-details 500. Stack traces
// stay in the log, never in the response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panic")
				problem.Write(w, r, problem.KindInternalError, "an unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
