package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record. It is mutated only through Manager
// operations; the password hash and verification code never leave the store
// layer (see Account for the caller-facing view).
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email     string    `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName string    `bun:"first_name" json:"first_name,omitempty"`
	LastName  string    `bun:"last_name" json:"last_name,omitempty"`
	Phone     string    `bun:"phone_number" json:"phone_number,omitempty"`

	// PasswordHash is empty for accounts created through an external identity
	// provider; password based flows must reject those accounts.
	PasswordHash string `bun:"password_hash" json:"-"`

	Verified bool `bun:"is_verified" json:"is_verified"`

	// VerificationCode is the outstanding password-reset code, nil when none
	// has been issued or the last one was consumed.
	VerificationCode *int `bun:"verification_code,nullzero" json:"-"`

	Role UserRole `bun:"user_role" json:"user_role,omitempty"`

	// Provider names the external identity provider that created the account,
	// empty for password based accounts. ExternalID is the provider's subject.
	Provider   string `bun:"provider" json:"provider,omitempty"`
	ExternalID string `bun:"external_id" json:"-"`

	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// HasPassword reports whether the account supports password based flows.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// IsExternal reports whether the account was created by an identity provider.
func (u *User) IsExternal() bool {
	return u != nil && u.Provider != ""
}

// Sanitize returns the caller-facing view of the account, stripped of the
// password hash, verification code, and session state.
func (u *User) Sanitize() *Account {
	if u == nil {
		return nil
	}

	return &Account{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		Verified:  u.Verified,
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt,
	}
}

// Account is the sanitized user view returned to callers. It never carries
// credential material.
type Account struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Phone     string     `json:"phone_number,omitempty"`
	Role      UserRole   `json:"user_role,omitempty"`
	Verified  bool       `json:"is_verified"`
	Provider  string     `json:"provider,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RefreshToken is one active session: one row per device, keyed by the opaque
// token value. The original design kept these in an array on the user record;
// a dedicated indexed table lets add, remove, and rotate run as single
// conditional statements.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Token     string     `bun:"token,notnull,unique" json:"-"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
