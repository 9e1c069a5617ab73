package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/config"
	"github.com/finfabric/analytics-gateway/internal/middleware"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/token"
	"github.com/finfabric/analytics-gateway/internal/version"
)

// Server is the gateway: it verifies external tokens, mints internal
// credentials, and forwards requests to the matched backend.
type Server struct {
	cfg      *config.Gateway
	verifier *token.ExternalVerifier
	limiter  *middleware.Limiter
	table    *Table
	client   *http.Client
}

// New wires a gateway from validated configuration.
func New(cfg *config.Gateway) *Server {
	keys := token.NewJWKSCache(cfg.JWKSURL)
	return &Server{
		cfg:      cfg,
		verifier: token.NewExternalVerifier(cfg.ExternalIssuer, cfg.ExternalAudience, keys),
		limiter:  middleware.NewLimiter(cfg.RateLimitWindow, cfg.RateLimitMax),
		table:    NewTable(cfg.Routes),
		client:   &http.Client{}, // per-route deadline set via request context
	}
}

// Keys exposes the JWKS cache for startup warm-up.
func (s *Server) Keys() *token.JWKSCache { return s.verifier.Keys }

// Routes assembles the middleware chain and dispatch surface. The chain
// order is fixed: request-ID, security headers, timing, logging, CORS,
// then rate limiting ahead of authentication on the API surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Timing)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(s.cfg.AllowedOrigins))

	// Health stays outside rate limiting and authentication.
	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter))
		r.HandleFunc("/api/*", s.dispatch)
	})

	log.Info().Int("routes", len(s.cfg.Routes)).Msg("gateway routes registered")
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gateway",
		"version": version.Version,
	})
}

// dispatch is the trust boundary: verify the external bearer, resolve the
// route, mint the internal credential, forward. A backend is never called
// without a valid internal token scoped to its audience.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, ok := bearerToken(r)
	if !ok {
		problem.Write(w, r, problem.KindMissingAuthentication, "a bearer token is required")
		return
	}

	ext, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("external token rejected")
		problem.WriteError(w, r, err)
		return
	}

	rt, ok := s.table.Match(r.URL.Path)
	if !ok {
		problem.Write(w, r, problem.KindUnknownRoute, "no service is mounted at this path")
		return
	}

	if r.ContentLength > rt.MaxBodyBytes {
		problem.Write(w, r, problem.KindPayloadTooLarge, "request body exceeds the allowed size")
		return
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, rt.MaxBodyBytes)
	}

	internal, err := token.Mint(ext, rt.Audience, s.cfg.InternalSecret, s.cfg.InternalTTL, middleware.GetRequestID(ctx))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("internal token mint failed")
		problem.WriteError(w, r, err)
		return
	}

	r = r.WithContext(middleware.WithPrincipal(ctx, ext.Subject))
	s.forward(w, r, rt, internal)
}

// bearerToken extracts the credential from the Authorization header.
// The scheme is case-insensitive; exactly one space separates it from the
// token.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := parts[1]
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}
