// Package daycount computes day-count fractions between date pairs under
// standard fixed-income calendar conventions.
package daycount

import (
	"net/http"
	"strconv"
	"time"

	"github.com/finfabric/analytics-gateway/internal/httpx"
	"github.com/finfabric/analytics-gateway/internal/problem"
	"github.com/finfabric/analytics-gateway/internal/version"
)

// maxPairs caps a single request.
const maxPairs = 1000

const dateLayout = "2006-01-02"

// Supported conventions.
const (
	Act360     = "ACT_360"
	Act365F    = "ACT_365F"
	ActActISDA = "ACT_ACT_ISDA"
	Thirty360  = "30_360_US"
)

// Pair is a start/end date pair, ISO dates.
type Pair struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type countRequest struct {
	Pairs      []Pair `json:"pairs"`
	Convention string `json:"convention"`
}

// Result is the computed fraction for one pair.
type Result struct {
	Days         int     `json:"days"`
	YearFraction float64 `json:"yearFraction"`
	Basis        int     `json:"basis"`
}

type countResponse struct {
	Results    []Result `json:"results"`
	Convention string   `json:"convention"`
	Version    string   `json:"version"`
}

// Count handles POST /api/daycount/v1/count.
func Count(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	var fields []problem.FieldError
	if len(req.Pairs) == 0 {
		fields = append(fields, problem.FieldError{Field: "pairs", Message: "at least one pair is required"})
	}
	if len(req.Pairs) > maxPairs {
		fields = append(fields, problem.FieldError{Field: "pairs", Message: "too many pairs in one request"})
	}
	if !knownConvention(req.Convention) {
		fields = append(fields, problem.FieldError{Field: "convention", Message: "unknown day-count convention"})
	}
	if fields != nil {
		problem.WriteFields(w, r, problem.KindValidationError, "request validation failed", fields)
		return
	}

	results := make([]Result, 0, len(req.Pairs))
	for i, p := range req.Pairs {
		start, err := time.Parse(dateLayout, p.Start)
		if err != nil {
			fields = append(fields, problem.FieldError{Field: fieldAt(i, "start"), Message: "not a valid ISO date"})
			continue
		}
		end, err := time.Parse(dateLayout, p.End)
		if err != nil {
			fields = append(fields, problem.FieldError{Field: fieldAt(i, "end"), Message: "not a valid ISO date"})
			continue
		}
		if end.Before(start) {
			fields = append(fields, problem.FieldError{Field: fieldAt(i, "end"), Message: "end date precedes start date"})
			continue
		}
		results = append(results, compute(start, end, req.Convention))
	}
	if fields != nil {
		problem.WriteFields(w, r, problem.KindValidationError, "request validation failed", fields)
		return
	}

	httpx.WriteJSON(w, r, http.StatusOK, countResponse{
		Results:    results,
		Convention: req.Convention,
		Version:    version.Version,
	})
}

func fieldAt(i int, name string) string {
	return "pairs[" + strconv.Itoa(i) + "]." + name
}

func knownConvention(c string) bool {
	switch c {
	case Act360, Act365F, ActActISDA, Thirty360:
		return true
	}
	return false
}

func compute(start, end time.Time, convention string) Result {
	switch convention {
	case Act360:
		d := actualDays(start, end)
		return Result{Days: d, YearFraction: float64(d) / 360.0, Basis: 360}
	case Act365F:
		d := actualDays(start, end)
		return Result{Days: d, YearFraction: float64(d) / 365.0, Basis: 365}
	case ActActISDA:
		d := actualDays(start, end)
		return Result{Days: d, YearFraction: actActISDAFraction(start, end), Basis: 365}
	case Thirty360:
		d := thirty360Days(start, end)
		return Result{Days: d, YearFraction: float64(d) / 360.0, Basis: 360}
	}
	return Result{}
}

// actualDays counts calendar days between two UTC dates.
func actualDays(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// actActISDAFraction splits the period at year boundaries, dividing each
// slice by its own year's length.
func actActISDAFraction(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	if start.Year() == end.Year() {
		return float64(actualDays(start, end)) / yearBasis(start.Year())
	}

	firstYearEnd := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
	lastYearStart := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	frac := float64(actualDays(start, firstYearEnd)) / yearBasis(start.Year())
	frac += float64(end.Year() - start.Year() - 1)
	frac += float64(actualDays(lastYearStart, end)) / yearBasis(end.Year())
	return frac
}

func yearBasis(year int) float64 {
	if isLeap(year) {
		return 366
	}
	return 365
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// thirty360Days applies the US 30/360 date adjustments.
func thirty360Days(start, end time.Time) int {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return 360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1)
}
