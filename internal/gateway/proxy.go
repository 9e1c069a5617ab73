package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/config"
	"github.com/finfabric/analytics-gateway/internal/middleware"
	"github.com/finfabric/analytics-gateway/internal/problem"
)

// hopByHop headers are connection-scoped and never forwarded.
var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// forward relays the request to the route's backend. The inbound
// Authorization header is replaced with the internal credential; the client's
// context cancels the outbound call if the connection closes.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, rt config.Route, internalToken string) {
	ctx, cancel := context.WithTimeout(r.Context(), rt.Timeout)
	defer cancel()

	// EscapedPath keeps percent-encoded characters intact on the wire.
	outURL := rt.BackendURL + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		outURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, outURL, r.Body)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to build backend request")
		problem.Write(w, r, problem.KindInternalError, "an unexpected error occurred")
		return
	}

	for k, vv := range r.Header {
		if _, skip := hopByHop[http.CanonicalHeaderKey(k)]; skip || http.CanonicalHeaderKey(k) == "Authorization" {
			continue
		}
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+internalToken)
	req.Header.Set(middleware.HeaderRequestID, middleware.GetRequestID(r.Context()))

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing useful to write.
			return
		}
		// A chunked body that outgrows the route cap fails here, mid-copy,
		// rather than at the Content-Length check.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			problem.Write(w, r, problem.KindPayloadTooLarge, "request body exceeds the allowed size")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("backend", rt.BackendURL).Msg("backend call failed")
		problem.Write(w, r, problem.KindInternalError, "the upstream service did not respond")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// Backend bodies propagate verbatim. Headers the gateway already owns
	// (request-ID, security, rate-limit) take precedence over the backend's.
	dst := w.Header()
	for k, vv := range resp.Header {
		ck := http.CanonicalHeaderKey(k)
		if _, skip := hopByHop[ck]; skip {
			continue
		}
		if len(dst.Values(ck)) > 0 {
			continue
		}
		for _, v := range vv {
			dst.Add(ck, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("response copy interrupted")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode json response")
	}
}
