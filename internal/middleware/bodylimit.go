package middleware

import (
	"net/http"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// BodyLimit caps the inbound request body at n bytes. Declared oversize
// bodies are rejected immediately; chunked bodies are capped at read time via
// MaxBytesReader, which handlers surface as a 413.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				problem.Write(w, r, problem.KindPayloadTooLarge, "request body exceeds the allowed size")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
