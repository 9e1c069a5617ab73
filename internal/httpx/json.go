// Package httpx holds the small JSON request/response helpers shared by the
// analytics services.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// ReadJSON decodes the request body into v. On failure it writes the
// appropriate problem response (413 when the body cap tripped, 400
// otherwise) and returns false.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			problem.Write(w, r, problem.KindPayloadTooLarge, "request body exceeds the allowed size")
			return false
		}
		problem.Write(w, r, problem.KindValidationError, "request body is not valid JSON for this operation")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode json response")
	}
}
