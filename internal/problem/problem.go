// Package problem implements the RFC 7807 problem-details error surface
// shared by the gateway and every backend.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind categorizes a failure for status mapping and the stable type URI.
type Kind string

const (
	KindMissingAuthentication Kind = "missing-authentication"
	KindInvalidTokenFormat    Kind = "invalid-token-format"
	KindInvalidSignature      Kind = "invalid-signature"
	KindExpired               Kind = "expired"
	KindInvalidIssuer         Kind = "invalid-issuer"
	KindInvalidAudience       Kind = "invalid-audience"
	KindUnknownKey            Kind = "unknown-key"
	KindMissingActor          Kind = "missing-actor"
	KindInsufficientScope     Kind = "insufficient-scope"
	KindUnknownRoute          Kind = "unknown-route"
	KindPayloadTooLarge       Kind = "payload-too-large"
	KindRateLimited           Kind = "rate-limited"
	KindValidationError       Kind = "validation-error"
	KindTransientAuthFailure  Kind = "transient-auth-failure"
	KindInternalError         Kind = "internal-error"
)

// typeBase anchors the stable type URIs. Documentation anchor only, never
// resolved at runtime.
const typeBase = "https://finfabric.dev/errors/"

// Status returns the HTTP status a kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindMissingAuthentication, KindInvalidTokenFormat, KindInvalidSignature,
		KindExpired, KindUnknownKey, KindMissingActor:
		return http.StatusUnauthorized
	case KindInvalidIssuer, KindInvalidAudience, KindInsufficientScope:
		return http.StatusForbidden
	case KindUnknownRoute:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindValidationError:
		return http.StatusBadRequest
	case KindTransientAuthFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Title returns the short human-readable summary for a kind.
func (k Kind) Title() string {
	switch k.Status() {
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusRequestEntityTooLarge:
		return "Payload Too Large"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Internal Server Error"
	}
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Details is the RFC 7807 response body.
type Details struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`
}

// KindError is implemented by typed errors that know their problem kind.
type KindError interface {
	error
	ProblemKind() Kind
	ProblemDetail() string
}

// WriteError maps a typed error to its problem response. Untyped errors
// surface as a generic internal error so nothing sensitive leaks.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var ke KindError
	if errors.As(err, &ke) {
		Write(w, r, ke.ProblemKind(), ke.ProblemDetail())
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Msg("unclassified error")
	Write(w, r, KindInternalError, "an unexpected error occurred")
}

// Write emits a problem-details response for the given kind. The detail must
// never carry claim values or identify which configuration check failed.
func Write(w http.ResponseWriter, r *http.Request, kind Kind, detail string) {
	WriteFields(w, r, kind, detail, nil)
}

// WriteFields emits a problem-details response with field-level errors.
func WriteFields(w http.ResponseWriter, r *http.Request, kind Kind, detail string, fields []FieldError) {
	body := Details{
		Type:   typeBase + string(kind),
		Title:  kind.Title(),
		Status: kind.Status(),
		Detail: detail,
		Errors: fields,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(body.Status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode problem response")
	}
}
