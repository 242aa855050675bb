package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleUser is the role every identity gets at registration.
const RoleUser = "ROLE_USER"

// RoleAdmin marks administrative identities. Assignment happens through an
// administrative path outside this package; membership is plain string
// equality, there is no hierarchy.
const RoleAdmin = "ROLE_ADMIN"

// AuthClaims represents verified token claims. Once constructed a claims
// value is immutable; its validity was established entirely from the token
// signature and expiry, never from a store lookup.
type AuthClaims interface {
	Subject() string
	UserID() string
	Roles() []string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string   `json:"uid,omitempty"`
	RoleNames []string `json:"roles,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Roles returns a copy of the role set carried by the token
func (c *JWTClaims) Roles() []string {
	if len(c.RoleNames) == 0 {
		return nil
	}
	out := make([]string, len(c.RoleNames))
	copy(out, c.RoleNames)
	return out
}

// HasRole checks role membership by string equality
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.RoleNames {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID backfills a unique jti so individual tokens are traceable
// in logs even though no server side state is kept for them.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
}
