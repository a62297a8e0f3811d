package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// SessionManager holds the credential lifecycle operations. Manager is the
// canonical implementation.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ForceLogout(ctx context.Context, userID uuid.UUID) error
	ForceLogoutByAdmin(ctx context.Context, actor ActorRef, targetID uuid.UUID) error
	ConfirmAccount(ctx context.Context, email string) error
	UpdateCredentials(ctx context.Context, userID uuid.UUID, update CredentialUpdate) (*Account, error)
	RequestPasswordReset(ctx context.Context, email string) (int, error)
	ConfirmPasswordReset(ctx context.Context, email, newPassword string, code int) error
}

// UserStore is the narrow credential-store surface consumed by Manager and
// Facade. The bun Users repository is the default implementation.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	UpdateProfile(ctx context.Context, user *User) (*User, error)

	// MarkVerified flips verified to true; it reports false when the account
	// was already verified (or is missing), without touching the record.
	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)

	SetVerificationCode(ctx context.Context, id uuid.UUID, code int) error

	// ConsumeVerificationCode atomically clears the stored code and installs
	// the new password hash, but only when the stored code equals code. It
	// reports false when the code did not match.
	ConsumeVerificationCode(ctx context.Context, id uuid.UUID, code int, passwordHash string) (bool, error)

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// RefreshTokenStore is the indexed session collection. Every mutation is
// atomic and conditional so concurrent session changes never lose updates.
type RefreshTokenStore interface {
	Add(ctx context.Context, userID uuid.UUID, token string) error

	// Remove deletes the token scoped to userID, reporting false when no such
	// token exists for that user.
	Remove(ctx context.Context, userID uuid.UUID, token string) (bool, error)

	// Rotate swaps oldToken for newToken in one conditional update and returns
	// the owning user. A consumed or unknown token reports false.
	Rotate(ctx context.Context, oldToken, newToken string) (uuid.UUID, bool, error)

	// Clear drops every session for the user and returns how many it removed.
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)

	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// PasswordAuthenticator authenticates passwords.
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds the token and link configuration consumed by the codec and
// the facade.
type Config interface {
	GetAccessTokenSecret() string
	GetAccessTokenTTL() time.Duration
	GetConfirmationTokenSecret() string
	GetConfirmationTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetConfirmationHost() string
}

// SimpleConfig is a plain struct Config implementation.
type SimpleConfig struct {
	AccessTokenSecret       string
	AccessTokenTTL          time.Duration
	ConfirmationTokenSecret string
	ConfirmationTokenTTL    time.Duration
	Issuer                  string
	Audience                []string
	ConfirmationHost        string
}

func (c SimpleConfig) GetAccessTokenSecret() string {
	return c.AccessTokenSecret
}

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetConfirmationTokenSecret() string {
	return c.ConfirmationTokenSecret
}

func (c SimpleConfig) GetConfirmationTokenTTL() time.Duration {
	return c.ConfirmationTokenTTL
}

func (c SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c SimpleConfig) GetAudience() []string {
	return c.Audience
}

func (c SimpleConfig) GetConfirmationHost() string {
	return c.ConfirmationHost
}

var _ Config = SimpleConfig{}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSIONS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSIONS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSIONS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSIONS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
