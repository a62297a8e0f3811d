package sessions

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Stable text codes exposed to boundary layers for client-side mapping.
const (
	TextCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
	TextCodeAuthenticationFailed    = "AUTHENTICATION_FAILED"
	TextCodeNotVerified             = "ACCOUNT_NOT_VERIFIED"
	TextCodeAlreadyConfirmed        = "ACCOUNT_ALREADY_CONFIRMED"
	TextCodeInvalidRefreshToken     = "INVALID_REFRESH_TOKEN"
	TextCodeInvalidVerificationCode = "INVALID_VERIFICATION_CODE"
	TextCodeExternalProviderOnly    = "EXTERNAL_PROVIDER_ONLY"
	TextCodeTokenExpired            = "TOKEN_EXPIRED"
	TextCodeTokenInvalid            = "TOKEN_INVALID"
	TextCodeTooManyLoginAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrAccountNotFound is returned when no account matches the given identifier.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeAccountNotFound)

// ErrAuthenticationFailed is returned when the supplied password does not
// match the stored hash.
var ErrAuthenticationFailed = errors.New("invalid credentials", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeAuthenticationFailed)

// ErrNotVerified rejects operations that require a confirmed email address.
var ErrNotVerified = errors.New("account email has not been confirmed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeNotVerified)

// ErrAlreadyConfirmed rejects re-confirmation of an already verified account.
var ErrAlreadyConfirmed = errors.New("account is already confirmed", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyConfirmed)

// ErrInvalidRefreshToken covers refresh tokens that were never issued, were
// already consumed, or belong to a different user.
var ErrInvalidRefreshToken = errors.New("invalid refresh token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidRefreshToken)

// ErrInvalidVerificationCode is returned when the reset code is absent or does
// not exactly match the stored one.
var ErrInvalidVerificationCode = errors.New("invalid verification code", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidVerificationCode)

// ErrExternalProviderOnly rejects password based flows against accounts that
// were created through an external identity provider and carry no local hash.
var ErrExternalProviderOnly = errors.New("account is managed by an external identity provider", errors.CategoryConflict).
	WithTextCode(TextCodeExternalProviderOnly)

// ErrTokenExpired marks structurally valid tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenInvalid marks tokens with a bad signature or malformed structure.
var ErrTokenInvalid = errors.New("token is invalid or malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrTooManyLoginAttempts enforces the login attempt cooldown window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTooManyLoginAttempts)

// ErrMismatchedHashAndPassword is the hasher-level mismatch error. Manager
// operations translate it to ErrAuthenticationFailed.
var ErrMismatchedHashAndPassword = errors.New("hashed password mismatch", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput)

// wrapStoreErr converts infrastructure failures from the credential store into
// internal errors, keeping them distinguishable from the deterministic domain
// errors above. Callers may retry these with backoff; domain errors never.
func wrapStoreErr(err error, msg string) error {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// IsRecordNotFound reports whether err marks a missing record. The repository
// layer flags misses with its own database category, which the generic
// not-found check does not cover.
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.IsNotFound(err) || repository.IsRecordNotFound(err)
}

// isUniqueViolation matches unique-index violations from the supported
// drivers. sqlite and postgres word them differently.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// IsStoreUnavailable reports whether err is an infrastructure failure rather
// than a domain rejection.
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryInternal
	}
	return false
}
