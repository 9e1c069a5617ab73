package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestKindStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindMissingAuthentication, 401},
		{KindInvalidTokenFormat, 401},
		{KindInvalidSignature, 401},
		{KindExpired, 401},
		{KindUnknownKey, 401},
		{KindMissingActor, 401},
		{KindInvalidIssuer, 403},
		{KindInvalidAudience, 403},
		{KindInsufficientScope, 403},
		{KindUnknownRoute, 404},
		{KindPayloadTooLarge, 413},
		{KindRateLimited, 429},
		{KindValidationError, 400},
		{KindTransientAuthFailure, 503},
		{KindInternalError, 500},
	}

	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestWrite_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Write(rec, req, KindInsufficientScope, "the daycount:write scope is required for this operation")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body Details
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.HasPrefix(body.Type, "https://finfabric.dev/errors/") {
		t.Errorf("type = %q", body.Type)
	}
	if body.Title != "Forbidden" || body.Status != 403 {
		t.Errorf("title/status = %q/%d", body.Title, body.Status)
	}
	if !strings.Contains(body.Detail, "daycount:write") {
		t.Errorf("detail = %q", body.Detail)
	}
}

func TestWriteFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteFields(rec, req, KindValidationError, "request validation failed", []FieldError{
		{Field: "pairs[0].start", Message: "not a valid ISO date"},
	})

	var body Details
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "pairs[0].start" {
		t.Errorf("errors = %+v", body.Errors)
	}
}

type testKindError struct{ kind Kind }

func (e *testKindError) Error() string         { return "typed" }
func (e *testKindError) ProblemKind() Kind     { return e.kind }
func (e *testKindError) ProblemDetail() string { return "typed detail" }

func TestWriteError_TypedAndUntyped(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, &testKindError{kind: KindExpired})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("typed error status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	WriteError(rec, req, errors.New("database exploded: credentials hunter2"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("untyped error status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Error("untyped error detail leaked into response")
	}
}
