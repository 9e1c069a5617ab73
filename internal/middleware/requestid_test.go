package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func echoRequestID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	})
}

func TestRequestID_HonorsConformingInbound(t *testing.T) {
	h := RequestID(echoRequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-id-12345")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "client-id-12345" {
		t.Errorf("response header = %q, want inbound id", got)
	}
	if got := rec.Body.String(); got != "client-id-12345" {
		t.Errorf("context id = %q, want inbound id", got)
	}
}

func TestRequestID_GeneratesWhenAbsentOrInvalid(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
	}{
		{"absent", ""},
		{"too short", "abc"},
		{"illegal characters", "id with spaces and $ymbols"},
		{"too long", strings.Repeat("a", 129)},
	}

	h := RequestID(echoRequestID())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(HeaderRequestID, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got == tt.inbound {
				t.Errorf("non-conforming id %q was honored", tt.inbound)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("generated id %q is not a UUID", got)
			}
			if rec.Body.String() != got {
				t.Errorf("context id %q != response header %q", rec.Body.String(), got)
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	h := RequestID(echoRequestID())

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(HeaderRequestID)
		if seen[id] {
			t.Fatalf("request id %q repeated", id)
		}
		seen[id] = true
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestTiming_EmitsServerTiming(t *testing.T) {
	h := Timing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	got := rec.Header().Get("Server-Timing")
	if !strings.HasPrefix(got, "total;dur=") {
		t.Errorf("Server-Timing = %q", got)
	}
}

func TestTiming_HeaderPresentOnSilentHandler(t *testing.T) {
	h := Timing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Server-Timing"); got == "" {
		t.Error("Server-Timing missing when handler wrote nothing")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
