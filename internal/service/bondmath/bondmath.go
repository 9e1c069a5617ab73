// Package bondmath holds the fixed-coupon bond cashflow arithmetic shared by
// the pricing and metrics services.
package bondmath

import (
	"math"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// Bond describes a fixed-coupon bullet bond.
type Bond struct {
	Face           float64 `json:"face"`
	CouponRate     float64 `json:"couponRate"`
	Yield          float64 `json:"yield"`
	PeriodsPerYear int     `json:"periodsPerYear"`
	MaturityYears  int     `json:"maturityYears"`
}

// Validate returns field errors for out-of-domain inputs.
func (b Bond) Validate() []problem.FieldError {
	var fields []problem.FieldError
	if b.Face <= 0 {
		fields = append(fields, problem.FieldError{Field: "face", Message: "must be positive"})
	}
	if b.CouponRate < 0 {
		fields = append(fields, problem.FieldError{Field: "couponRate", Message: "must not be negative"})
	}
	if b.Yield <= -1 {
		fields = append(fields, problem.FieldError{Field: "yield", Message: "must be greater than -100%"})
	}
	switch b.PeriodsPerYear {
	case 1, 2, 4, 12:
	default:
		fields = append(fields, problem.FieldError{Field: "periodsPerYear", Message: "must be 1, 2, 4, or 12"})
	}
	if b.MaturityYears <= 0 || b.MaturityYears > 100 {
		fields = append(fields, problem.FieldError{Field: "maturityYears", Message: "must be between 1 and 100"})
	}
	return fields
}

// Price is the present value of all remaining cashflows.
func (b Bond) Price() float64 {
	price, _, _, _ := b.Risk()
	return price
}

// Risk returns the price together with Macaulay duration, modified duration,
// and convexity.
func (b Bond) Risk() (price, macaulay, modified, convexity float64) {
	m := float64(b.PeriodsPerYear)
	periods := b.PeriodsPerYear * b.MaturityYears
	coupon := b.Face * b.CouponRate / m
	perPeriod := b.Yield / m

	var weighted, convexitySum float64
	for k := 1; k <= periods; k++ {
		cf := coupon
		if k == periods {
			cf += b.Face
		}
		t := float64(k) / m // time in years
		pv := cf / math.Pow(1+perPeriod, float64(k))
		price += pv
		weighted += t * pv
		convexitySum += t * (t + 1/m) * pv
	}

	if price == 0 {
		return 0, 0, 0, 0
	}
	macaulay = weighted / price
	modified = macaulay / (1 + perPeriod)
	convexity = convexitySum / (price * math.Pow(1+perPeriod, 2))
	return price, macaulay, modified, convexity
}
