// Package metrics computes interest-rate risk measures for bonds.
package metrics

import (
	"net/http"

	"github.com/finfabric/analytics-gateway/internal/httpx"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/service/bondmath"
	"github.com/finfabric/analytics-gateway/internal/version"
)

type riskResponse struct {
	Price            float64 `json:"price"`
	MacaulayDuration float64 `json:"macaulayDuration"`
	ModifiedDuration float64 `json:"modifiedDuration"`
	Convexity        float64 `json:"convexity"`
	Version          string  `json:"version"`
}

// Risk handles POST /api/metrics/v1/risk.
func Risk(w http.ResponseWriter, r *http.Request) {
	var bond bondmath.Bond
	if !httpx.ReadJSON(w, r, &bond) {
		return
	}
	if fields := bond.Validate(); fields != nil {
		problem.WriteFields(w, r, problem.KindValidationError, "request validation failed", fields)
		return
	}

	price, mac, mod, conv := bond.Risk()
	httpx.WriteJSON(w, r, http.StatusOK, riskResponse{
		Price:            price,
		MacaulayDuration: mac,
		ModifiedDuration: mod,
		Convexity:        conv,
		Version:          version.Version,
	})
}
