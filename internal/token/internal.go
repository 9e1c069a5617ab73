package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finfabric/analytics-gateway/internal/config"
	"github.com/finfabric/analytics-gateway/internal/problem"
)

const (
	// GatewayIssuer identifies tokens minted by this gateway.
	GatewayIssuer = "analytics-gateway"
	// GatewaySubject is the fixed service identity of the gateway itself.
	GatewaySubject = "svc-gateway"
	// InternalTokenVersion tags the header of minted tokens.
	InternalTokenVersion = "1"
)

// Minted tokens carry exactly one audience; emit it as a plain string
// rather than a one-element array. Verification accepts both shapes.
func init() { jwt.MarshalSingleStringAsArray = false }

// Actor carries the upstream principal inside an internal token. Backends
// authorize against Actor.Permissions and nothing else.
type Actor struct {
	Issuer         string   `json:"iss"`
	Subject        string   `json:"sub"`
	Role           string   `json:"role,omitempty"`
	Permissions    []string `json:"permissions"`
	Organization   string   `json:"org,omitempty"`
	InternalUserID string   `json:"internal_user_id,omitempty"`
}

// InternalClaims is the payload of a gateway-minted token.
type InternalClaims struct {
	jwt.RegisteredClaims
	RequestID string `json:"request_id"`
	Actor     *Actor `json:"actor,omitempty"`
}

// HasPermission reports whether the actor carries the given scope.
func (a *Actor) HasPermission(scope string) bool {
	for _, p := range a.Permissions {
		if p == scope {
			return true
		}
	}
	return false
}

// Mint issues a short-lived internal token for the target audience. The actor
// permissions are copied verbatim from the external claims: the gateway never
// adds, removes, or renames scopes.
func Mint(ext *ExternalClaims, audience, secret string, ttl time.Duration, requestID string) (string, error) {
	if len(secret) < config.MinSecretLen {
		return "", authErr(problem.KindInternalError, "service is misconfigured")
	}
	if ttl <= 0 || ttl > config.MaxInternalTTL {
		return "", authErr(problem.KindInternalError, "service is misconfigured")
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	now := time.Now()
	claims := InternalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    GatewayIssuer,
			Subject:   GatewaySubject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		RequestID: requestID,
		Actor: &Actor{
			Issuer:         ext.Issuer,
			Subject:        ext.Subject,
			Role:           ext.Role,
			Permissions:    ext.Permissions,
			Organization:   ext.OrgID,
			InternalUserID: ext.UserID,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["ver"] = InternalTokenVersion

	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", wrapAuthErr(problem.KindInternalError, "service is misconfigured", err)
	}
	return signed, nil
}

// VerifyInternal validates a gateway-minted token for the given audience.
// The MAC is checked before any claim is trusted; comparison is constant
// time. A configuration fault (weak secret) surfaces as an internal error,
// never as an authentication failure.
func VerifyInternal(ctx context.Context, raw, secret, expectedAudience string) (*InternalClaims, error) {
	if len(secret) < config.MinSecretLen {
		return nil, authErr(problem.KindInternalError, "service is misconfigured")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &InternalClaims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, wrapAuthErr(problem.KindExpired, "internal credential has expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, wrapAuthErr(problem.KindInvalidSignature, "internal credential signature is invalid", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, wrapAuthErr(problem.KindInvalidTokenFormat, "internal credential is malformed", err)
		default:
			return nil, wrapAuthErr(problem.KindInvalidTokenFormat, "internal credential could not be validated", err)
		}
	}

	audOK := false
	for _, a := range claims.Audience {
		if a == expectedAudience {
			audOK = true
			break
		}
	}
	if !audOK {
		return nil, authErr(problem.KindInvalidAudience, "credential is not intended for this service")
	}

	if claims.Actor == nil || claims.Actor.Subject == "" {
		return nil, authErr(problem.KindMissingActor, "credential carries no actor identity")
	}

	// Unexpected issuer is logged, not rejected, to permit issuer migration.
	if claims.Issuer != GatewayIssuer {
		log.Ctx(ctx).Warn().Str("issuer", claims.Issuer).Msg("internal token from unexpected issuer")
	}
	if ver, _ := tok.Header["ver"].(string); ver != InternalTokenVersion {
		log.Ctx(ctx).Warn().Str("ver", ver).Msg("internal token with unexpected version tag")
	}

	return claims, nil
}
