package token

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// fetchUserAgent identifies the gateway on JWKS requests.
const fetchUserAgent = "analytics-gateway-jwks/1.0"

// ErrKeyNotFound indicates the kid is absent from the key set even after a
// refresh.
var ErrKeyNotFound = errors.New("jwks: key not found")

// JWKSCache holds the identity provider's RSA signing keys indexed by kid.
//
// Concurrent refreshes collapse into a single outbound fetch. A miss on an
// unknown kid forces at most one refresh per minRefresh interval so key
// rotation is absorbed without enabling cache busting.
type JWKSCache struct {
	url        string
	httpClient *http.Client
	refresh    time.Duration // routine staleness threshold
	minRefresh time.Duration // floor between forced refreshes

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	forcedAt  time.Time // last unknown-kid forced refresh

	sf singleflight.Group
}

// JWKSOption configures the cache.
type JWKSOption func(*JWKSCache)

// WithHTTPClient sets a custom HTTP client for fetching the key set.
func WithHTTPClient(c *http.Client) JWKSOption {
	return func(j *JWKSCache) { j.httpClient = c }
}

// WithRefreshInterval sets how long cached keys are considered fresh.
// Default: 1 hour.
func WithRefreshInterval(d time.Duration) JWKSOption {
	return func(j *JWKSCache) { j.refresh = d }
}

// WithMinRefreshInterval sets the floor between forced refreshes on
// unknown-kid misses. Default: 60 seconds.
func WithMinRefreshInterval(d time.Duration) JWKSOption {
	return func(j *JWKSCache) { j.minRefresh = d }
}

// NewJWKSCache creates a key cache for the given JWKS URL.
func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	j := &JWKSCache{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		refresh:    1 * time.Hour,
		minRefresh: 60 * time.Second,
		keys:       make(map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Lookup returns the public key for kid, refreshing the set when the cache is
// stale or the kid is unknown. Returns ErrKeyNotFound when the kid is still
// absent after a refresh; network failures surface as transient errors.
func (j *JWKSCache) Lookup(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	key, found := j.keys[kid]
	age := time.Since(j.fetchedAt)
	j.mu.RUnlock()

	if found && age < j.refresh {
		return key, nil
	}

	if found {
		// Stale but known: try to refresh, fall back to the cached key so a
		// flaky provider does not take down verification.
		if err := j.Refresh(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("jwks refresh failed, using cached key")
			return key, nil
		}
		return j.cached(kid)
	}

	// Cold cache: populate on first miss.
	if j.empty() {
		if err := j.Refresh(ctx); err != nil {
			return nil, err
		}
		return j.cached(kid)
	}

	// Unknown kid against a populated cache: forced refresh, at most one per
	// minRefresh interval so rotation is absorbed without cache busting.
	if err := j.forcedRefresh(ctx); err != nil {
		if errors.Is(err, errRefreshThrottled) {
			return nil, fmt.Errorf("%w: kid %q (refresh throttled)", ErrKeyNotFound, kid)
		}
		return nil, err
	}
	return j.cached(kid)
}

// errRefreshThrottled marks a forced refresh suppressed by the interval floor.
var errRefreshThrottled = errors.New("jwks: forced refresh throttled")

// forcedRefresh runs an unknown-kid refresh through the shared flight. The
// throttle decision happens inside the flight, so lookups that miss while a
// forced fetch is already outbound join it and share its result instead of
// failing early.
func (j *JWKSCache) forcedRefresh(ctx context.Context) error {
	_, err, _ := j.sf.Do("refresh", func() (any, error) {
		j.mu.Lock()
		throttled := time.Since(j.forcedAt) < j.minRefresh
		if !throttled {
			j.forcedAt = time.Now()
		}
		j.mu.Unlock()

		if throttled {
			return nil, errRefreshThrottled
		}
		return nil, j.fetch(ctx)
	})
	return err
}

// Refresh fetches the key set. Concurrent calls share one in-flight fetch.
func (j *JWKSCache) Refresh(ctx context.Context) error {
	_, err, _ := j.sf.Do("refresh", func() (any, error) {
		return nil, j.fetch(ctx)
	})
	return err
}

func (j *JWKSCache) cached(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if key, ok := j.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

func (j *JWKSCache) empty() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.keys) == 0
}

// fetch retrieves and parses the key set. No retries at this layer; callers
// surface failures as transient.
func (j *JWKSCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("jwks: create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: fetch returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwkKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("kid", k.Kid).Msg("skipping malformed JWK")
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return errors.New("jwks: no usable RSA signing keys in response")
	}

	j.mu.Lock()
	j.keys = keys
	j.fetchedAt = time.Now()
	j.mu.Unlock()

	log.Ctx(ctx).Debug().Int("keyCount", len(keys)).Msg("jwks cache refreshed")
	return nil
}

type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *jwkKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
