package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimNamespace prefixes the custom claims our identity provider attaches
// to access tokens (permissions, role, user_id, org_id).
const ClaimNamespace = "https://finfabric.dev"

// ExternalClaims is the decoded identity-provider access token.
type ExternalClaims struct {
	Issuer      string
	Subject     string
	Audience    []string
	ExpiresAt   time.Time
	IssuedAt    time.Time
	Permissions []string
	Role        string
	UserID      string
	OrgID       string
}

// externalFromMap builds ExternalClaims from raw JWT claims.
func externalFromMap(m jwt.MapClaims) *ExternalClaims {
	c := &ExternalClaims{
		Permissions: extractPermissions(m),
	}

	if v, ok := m["iss"].(string); ok {
		c.Issuer = v
	}
	if v, ok := m["sub"].(string); ok {
		c.Subject = v
	}
	c.Audience = audienceSet(m["aud"])
	if v, ok := m["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(v), 0)
	}
	if v, ok := m["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(v), 0)
	}
	if v, ok := m[ClaimNamespace+"/role"].(string); ok {
		c.Role = v
	}
	if v, ok := m[ClaimNamespace+"/user_id"].(string); ok {
		c.UserID = v
	}
	if v, ok := m[ClaimNamespace+"/org_id"].(string); ok {
		c.OrgID = v
	}

	return c
}

// extractPermissions resolves the permission set with fixed precedence:
// namespaced permissions claim, then top-level permissions array, then
// whitespace-split scope string, then empty.
func extractPermissions(m jwt.MapClaims) []string {
	if perms := stringSlice(m[ClaimNamespace+"/permissions"]); perms != nil {
		return perms
	}
	if perms := stringSlice(m["permissions"]); perms != nil {
		return perms
	}
	if scope, ok := m["scope"].(string); ok && strings.TrimSpace(scope) != "" {
		return strings.Fields(scope)
	}
	return []string{}
}

// stringSlice converts a decoded JSON array to []string, nil if absent or
// not an array. An empty array is a present-but-empty permission set.
func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// audienceSet normalizes the aud claim, which may be a string or an array.
func audienceSet(v any) []string {
	switch a := v.(type) {
	case string:
		return []string{a}
	case []any:
		out := make([]string, 0, len(a))
		for _, e := range a {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// HasAudience reports whether the token was issued for the given audience.
func (c *ExternalClaims) HasAudience(aud string) bool {
	for _, a := range c.Audience {
		if a == aud {
			return true
		}
	}
	return false
}
