// Package pricing computes bond prices from yield.
package pricing

import (
	"net/http"

	"github.com/finfabric/analytics-gateway/internal/httpx"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/service/bondmath"
	"github.com/finfabric/analytics-gateway/internal/version"
)

type priceResponse struct {
	Price   float64 `json:"price"`
	Periods int     `json:"periods"`
	Version string  `json:"version"`
}

// Price handles POST /api/pricing/v1/price.
func Price(w http.ResponseWriter, r *http.Request) {
	var bond bondmath.Bond
	if !httpx.ReadJSON(w, r, &bond) {
		return
	}
	if fields := bond.Validate(); fields != nil {
		problem.WriteFields(w, r, problem.KindValidationError, "request validation failed", fields)
		return
	}

	httpx.WriteJSON(w, r, http.StatusOK, priceResponse{
		Price:   bond.Price(),
		Periods: bond.PeriodsPerYear * bond.MaturityYears,
		Version: version.Version,
	})
}
