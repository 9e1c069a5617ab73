package backend

// Scope vocabulary enforced by the backend guards. The gateway never
// interprets these; it copies them verbatim into the actor claim.
const (
	ScopeDaycountWrite  = "daycount:write"
	ScopeValuationWrite = "valuation:write"
	ScopeMetricsWrite   = "metrics:write"
	ScopePricingWrite   = "pricing:write"

	// Read variants are reserved; no handler requires them yet.
	ScopeDaycountRead  = "daycount:read"
	ScopeValuationRead = "valuation:read"
	ScopeMetricsRead   = "metrics:read"
	ScopePricingRead   = "pricing:read"
)
