package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Timing emits Server-Timing with the total handling duration. The header is
// written just before the status line, so it reflects everything up to the
// handler's first write.
func Timing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		wrapped := &timingWriter{WrapResponseWriter: ww, start: start}
		next.ServeHTTP(wrapped, r)

		// Handler never wrote; flush the header with a 200.
		if !wrapped.wroteHeader {
			wrapped.WriteHeader(http.StatusOK)
		}
	})
}

type timingWriter struct {
	chimw.WrapResponseWriter
	start       time.Time
	wroteHeader bool
}

func (t *timingWriter) WriteHeader(code int) {
	if !t.wroteHeader {
		t.wroteHeader = true
		dur := float64(time.Since(t.start).Microseconds()) / 1000.0
		t.Header().Set("Server-Timing", fmt.Sprintf("total;dur=%.1f", dur))
	}
	t.WrapResponseWriter.WriteHeader(code)
}

func (t *timingWriter) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	return t.WrapResponseWriter.Write(b)
}
