package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// nbfSkew is the tolerance applied when honoring an optional nbf claim.
const nbfSkew = 60 * time.Second

// ExternalVerifier validates identity-provider access tokens: RS256 only,
// key resolution through the JWKS cache, issuer and audience pinned to the
// configured values.
type ExternalVerifier struct {
	Issuer   string
	Audience string
	Keys     *JWKSCache
}

// NewExternalVerifier creates a verifier for the given issuer and audience.
func NewExternalVerifier(issuer, audience string, keys *JWKSCache) *ExternalVerifier {
	return &ExternalVerifier{Issuer: issuer, Audience: audience, Keys: keys}
}

// Verify validates an external bearer token and returns its claims.
// Claim checks run before key resolution so obviously bad tokens never
// trigger a JWKS fetch; the signature is verified last, over the literal
// header.payload bytes.
func (v *ExternalVerifier) Verify(ctx context.Context, raw string) (*ExternalClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, authErr(problem.KindInvalidTokenFormat, "token is not a valid JWT")
	}

	parser := jwt.NewParser()
	mapClaims := jwt.MapClaims{}
	tok, _, err := parser.ParseUnverified(raw, mapClaims)
	if err != nil {
		return nil, wrapAuthErr(problem.KindInvalidTokenFormat, "token could not be decoded", err)
	}

	// No algorithm substitution: RS256 with an explicit kid, nothing else.
	if alg, _ := tok.Header["alg"].(string); alg != "RS256" {
		return nil, authErr(problem.KindInvalidTokenFormat, "unsupported signing algorithm")
	}
	if typ, ok := tok.Header["typ"].(string); ok && typ != "JWT" {
		return nil, authErr(problem.KindInvalidTokenFormat, "unsupported token type")
	}
	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, authErr(problem.KindInvalidTokenFormat, "token header is missing a key identifier")
	}

	claims := externalFromMap(mapClaims)

	now := time.Now()
	if claims.Issuer != v.Issuer {
		return nil, authErr(problem.KindInvalidIssuer, "token was issued by an unexpected authority")
	}
	if !claims.HasAudience(v.Audience) {
		return nil, authErr(problem.KindInvalidAudience, "token is not intended for this API")
	}
	if claims.ExpiresAt.IsZero() || !claims.ExpiresAt.After(now) {
		return nil, authErr(problem.KindExpired, "token has expired")
	}
	if nbf, ok := mapClaims["nbf"].(float64); ok {
		if time.Unix(int64(nbf), 0).After(now.Add(nbfSkew)) {
			return nil, authErr(problem.KindExpired, "token is not yet valid")
		}
	}

	key, err := v.Keys.Lookup(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, wrapAuthErr(problem.KindUnknownKey, "token signing key is not recognized", err)
		}
		return nil, wrapAuthErr(problem.KindTransientAuthFailure, "signing keys are temporarily unavailable", err)
	}

	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, wrapAuthErr(problem.KindInvalidTokenFormat, "token signature could not be decoded", err)
	}
	if err := jwt.SigningMethodRS256.Verify(strings.Join(parts[:2], "."), sig, key); err != nil {
		return nil, wrapAuthErr(problem.KindInvalidSignature, "token signature is invalid", err)
	}

	return claims, nil
}
