// Package jwt issues and verifies the access tokens guarding the HTTP API.
package jwt

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeAdmin is the scope required by operator-only endpoints such as code
// reactivation and code inspection.
const ScopeAdmin = "otc:admin"

type contextKey struct{}

// Claims is the token payload. Scopes carries coarse-grained permissions;
// most callers have none.
type Claims struct {
	jwt.RegisteredClaims

	UserID int64    `json:"uid"`
	Email  string   `json:"email,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants the given scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// JWT generates and verifies access tokens.
type JWT interface {
	// Generate signs a token for the user, valid for the configured lifetime.
	Generate(userID int64, email string, scopes ...string) (string, error)

	// Verify parses and validates a token string, returning its claims.
	Verify(token string) (*Claims, error)
}

// SetAuth stores verified claims on the context for downstream layers.
func SetAuth(ctx context.Context, clm *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, clm)
}

// GetAuth returns the claims placed by SetAuth, or nil when the request was
// not authenticated.
func GetAuth(ctx context.Context) *Claims {
	clm, _ := ctx.Value(contextKey{}).(*Claims)
	return clm
}
