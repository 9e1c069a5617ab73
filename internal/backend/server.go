package backend

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/config"
	"github.com/finfabric/analytics-gateway/internal/httpx"
	"github.com/finfabric/analytics-gateway/internal/middleware"
	"github.com/finfabric/analytics-gateway/internal/service/daycount"
	"github.com/finfabric/analytics-gateway/internal/service/metrics"
	"github.com/finfabric/analytics-gateway/internal/service/pricing"
	"github.com/finfabric/analytics-gateway/internal/service/valuation"
	"github.com/finfabric/analytics-gateway/internal/version"
)

// maxBodyBytes caps analytics request bodies backend-side, independent of
// the gateway's per-route cap.
const maxBodyBytes = 100 * 1024

// New assembles the HTTP surface for one analytics backend. Business routes
// sit behind the internal-token verifier and the service's scope guard;
// health stays public.
func New(cfg *config.Backend) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Timing)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recover)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, req, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"version": version.Version,
		})
	})

	verify := RequireInternalToken(cfg.InternalSecret, cfg.Audience)
	bodyCap := middleware.BodyLimit(maxBodyBytes)

	switch cfg.ServiceName {
	case "daycount":
		r.Route("/api/daycount", func(r chi.Router) {
			r.Use(verify, RequireAll(ScopeDaycountWrite), bodyCap)
			r.Post("/v1/count", daycount.Count)
		})
	case "valuation":
		r.Route("/api/valuation", func(r chi.Router) {
			r.Use(verify, RequireAll(ScopeValuationWrite), bodyCap)
			r.Post("/v1/value", valuation.Value)
		})
	case "metrics":
		r.Route("/api/metrics", func(r chi.Router) {
			r.Use(verify, RequireAll(ScopeMetricsWrite), bodyCap)
			r.Post("/v1/risk", metrics.Risk)
		})
	case "pricing":
		r.Route("/api/pricing", func(r chi.Router) {
			r.Use(verify, RequireAll(ScopePricingWrite), bodyCap)
			r.Post("/v1/price", pricing.Price)
		})
	}

	log.Info().Str("service", cfg.ServiceName).Msg("backend routes registered")
	return r
}
