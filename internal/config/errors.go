package config

import "errors"

var (
	// ErrMissingIssuer indicates EXTERNAL_ISSUER is not configured
	ErrMissingIssuer = errors.New("EXTERNAL_ISSUER is required")

	// ErrMissingAudience indicates EXTERNAL_AUDIENCE is not configured
	ErrMissingAudience = errors.New("EXTERNAL_AUDIENCE is required")

	// ErrWeakSecret indicates the internal signing secret is missing or too short
	ErrWeakSecret = errors.New("INTERNAL_JWT_SECRET must be at least 32 bytes")

	// ErrTTLTooLong indicates the internal token TTL exceeds the allowed maximum
	ErrTTLTooLong = errors.New("INTERNAL_JWT_TTL must not exceed 90 seconds")

	// ErrNoRoutes indicates no backend bindings are configured
	ErrNoRoutes = errors.New("at least one BACKEND_<NAME>_URL binding is required")

	// ErrUnknownService indicates SERVICE_NAME does not match a known backend
	ErrUnknownService = errors.New("SERVICE_NAME must be one of: daycount, valuation, metrics, pricing")
)
