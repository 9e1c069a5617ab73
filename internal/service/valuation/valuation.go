// Package valuation marks portfolios of priced positions.
package valuation

import (
	"net/http"
	"strconv"

	"github.com/finfabric/analytics-gateway/internal/httpx"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/version"
)

// maxPositions caps a single request.
const maxPositions = 5000

// Position is one holding to be marked.
type Position struct {
	InstrumentID string  `json:"instrumentId"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
}

type valueRequest struct {
	Positions []Position `json:"positions"`
}

type valueResponse struct {
	MarketValue   float64 `json:"marketValue"`
	PositionCount int     `json:"positionCount"`
	Version       string  `json:"version"`
}

// Value handles POST /api/valuation/v1/value.
func Value(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	var fields []problem.FieldError
	if len(req.Positions) == 0 {
		fields = append(fields, problem.FieldError{Field: "positions", Message: "at least one position is required"})
	}
	if len(req.Positions) > maxPositions {
		fields = append(fields, problem.FieldError{Field: "positions", Message: "too many positions in one request"})
	}
	for i, p := range req.Positions {
		if p.Price < 0 {
			fields = append(fields, problem.FieldError{
				Field:   "positions[" + strconv.Itoa(i) + "].price",
				Message: "must not be negative",
			})
		}
	}
	if fields != nil {
		problem.WriteFields(w, r, problem.KindValidationError, "request validation failed", fields)
		return
	}

	var total float64
	for _, p := range req.Positions {
		total += p.Quantity * p.Price
	}

	httpx.WriteJSON(w, r, http.StatusOK, valueResponse{
		MarketValue:   total,
		PositionCount: len(req.Positions),
		Version:       version.Version,
	})
}
