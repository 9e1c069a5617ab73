package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxInternalTTL caps the lifetime of gateway-minted tokens.
const MaxInternalTTL = 90 * time.Second

// MinSecretLen is the minimum length of the internal HMAC secret in bytes.
const MinSecretLen = 32

// Route binds a path prefix to a backend service.
type Route struct {
	Prefix       string        // e.g. "/api/daycount/"
	Audience     string        // e.g. "svc-daycount"
	BackendURL   string        // e.g. "http://daycount:8091"
	Timeout      time.Duration // outbound call deadline
	MaxBodyBytes int64         // inbound request body cap
}

// Gateway holds configuration for the gateway process.
type Gateway struct {
	HTTPAddr         string
	Env              string
	ExternalIssuer   string
	ExternalAudience string
	JWKSURL          string
	InternalSecret   string
	InternalTTL      time.Duration
	RateLimitWindow  time.Duration
	RateLimitMax     int
	AllowedOrigins   []string
	Routes           []Route
}

// Backend holds configuration for a single analytics backend process.
type Backend struct {
	HTTPAddr       string
	Env            string
	ServiceName    string // daycount, valuation, metrics, pricing
	Audience       string // svc-<name>
	InternalSecret string
}

// knownServices lists the analytics backends this fleet ships, in route order.
var knownServices = []string{"daycount", "valuation", "metrics", "pricing"}

// env returns the value of the environment variable k, or def if unset/empty.
func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// LoadGateway builds gateway configuration from the environment.
// Validation is separate so callers can report all startup faults via Validate.
func LoadGateway() *Gateway {
	issuer := strings.TrimRight(env("EXTERNAL_ISSUER", ""), "/")

	jwksURL := env("JWKS_URL", "")
	if jwksURL == "" && issuer != "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	cfg := &Gateway{
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		Env:              env("ENV", "dev"),
		ExternalIssuer:   issuer,
		ExternalAudience: env("EXTERNAL_AUDIENCE", ""),
		JWKSURL:          jwksURL,
		InternalSecret:   env("INTERNAL_JWT_SECRET", ""),
		InternalTTL:      time.Duration(envInt("INTERNAL_JWT_TTL", 90)) * time.Second,
		RateLimitWindow:  time.Duration(envInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		RateLimitMax:     envInt("RATE_LIMIT_MAX", 100),
	}

	if origins := env("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	for _, name := range knownServices {
		key := strings.ToUpper(name)
		url := env("BACKEND_"+key+"_URL", "")
		if url == "" {
			continue
		}
		cfg.Routes = append(cfg.Routes, Route{
			Prefix:       "/api/" + name + "/",
			Audience:     "svc-" + name,
			BackendURL:   strings.TrimRight(url, "/"),
			Timeout:      time.Duration(envInt("BACKEND_"+key+"_TIMEOUT_MS", 30000)) * time.Millisecond,
			MaxBodyBytes: int64(envInt("BACKEND_"+key+"_MAX_BODY", 100*1024)),
		})
	}

	return cfg
}

// Validate checks gateway configuration for startup faults.
func (c *Gateway) Validate() error {
	if c.ExternalIssuer == "" {
		return ErrMissingIssuer
	}
	if c.ExternalAudience == "" {
		return ErrMissingAudience
	}
	if len(c.InternalSecret) < MinSecretLen {
		return ErrWeakSecret
	}
	if c.InternalTTL > MaxInternalTTL {
		return ErrTTLTooLong
	}
	if len(c.Routes) == 0 {
		return ErrNoRoutes
	}
	return nil
}

// LoadBackend builds backend configuration from the environment.
func LoadBackend() *Backend {
	name := env("SERVICE_NAME", "")
	return &Backend{
		HTTPAddr:       env("HTTP_ADDR", ":8091"),
		Env:            env("ENV", "dev"),
		ServiceName:    name,
		Audience:       "svc-" + name,
		InternalSecret: env("INTERNAL_JWT_SECRET", ""),
	}
}

// Validate checks backend configuration for startup faults.
func (c *Backend) Validate() error {
	known := false
	for _, s := range knownServices {
		if c.ServiceName == s {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w (got %q)", ErrUnknownService, c.ServiceName)
	}
	if len(c.InternalSecret) < MinSecretLen {
		return ErrWeakSecret
	}
	return nil
}
