package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the structured view of a verified access token, with the role
// helpers used by boundary middleware.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the payload of short-lived access tokens: the user id plus
// the admin tier, if any.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the user's administrative tier, empty for ordinary members.
func (c *AccessClaims) Role() string {
	return c.UserRole
}

// HasRole checks if the user has a specific role
func (c *AccessClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required tier
func (c *AccessClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ConfirmationClaims is the payload of email-confirmation tokens: the address
// being confirmed. Confirmation tokens are signed with a secret distinct from
// access tokens so one kind can never stand in for the other.
type ConfirmationClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}
