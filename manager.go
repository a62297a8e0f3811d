package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MaxLoginAttempts is the maximum number of failed attempts a user gets
// inside the cooldown window.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate.
var CoolDownPeriod = "24h"

// refreshTokenBytes is the entropy of an opaque refresh token; the encoded
// form is twice as long (hex).
const refreshTokenBytes = 64

// Manager owns the login, logout, refresh, force-logout, and credential
// update protocols. It is stateless between calls: all durable state lives in
// the user and refresh-token stores.
type Manager struct {
	users    UserStore
	tokens   RefreshTokenStore
	codec    *TokenCodec
	hasher   PasswordAuthenticator
	logger   Logger
	activity ActivitySink
}

var _ SessionManager = (*Manager)(nil)

// NewManager constructs a Manager over the given stores and token codec.
func NewManager(users UserStore, tokens RefreshTokenStore, codec *TokenCodec) *Manager {
	return &Manager{
		users:    users,
		tokens:   tokens,
		codec:    codec,
		hasher:   NewPasswordAuthenticator(),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting session events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.activity = normalizeActivitySink(sink)
	return m
}

// WithPasswordAuthenticator overrides the default bcrypt hasher.
func (m *Manager) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Manager {
	if hasher != nil {
		m.hasher = hasher
	}
	return m
}

// Codec exposes the token codec used by this Manager.
func (m *Manager) Codec() *TokenCodec {
	return m.codec
}

// Login authenticates email/password credentials and opens a new session.
// Each successful login appends one refresh token; multi-device sessions are
// intentionally supported.
func (m *Manager) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			m.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{"email": email})
			return nil, ErrAccountNotFound
		}
		return nil, wrapStoreErr(err, "failed to retrieve user during login")
	}

	if !user.HasPassword() {
		m.emit(ctx, ActivityEventLoginFailure, m.actorFor(user), user.ID.String(), nil)
		return nil, ErrExternalProviderOnly
	}

	if err := m.ensureAttemptsAllowed(user); err != nil {
		m.emit(ctx, ActivityEventLoginFailure, m.actorFor(user), user.ID.String(), nil)
		return nil, err
	}

	if err := m.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if trackErr := m.users.TrackAttemptedLogin(ctx, user); trackErr != nil {
			m.logger.Warn("failed to track login attempt: %v", trackErr)
		}
		m.emit(ctx, ActivityEventLoginFailure, m.actorFor(user), user.ID.String(), nil)
		return nil, ErrAuthenticationFailed
	}

	if !user.Verified {
		m.emit(ctx, ActivityEventLoginFailure, m.actorFor(user), user.ID.String(), nil)
		return nil, ErrNotVerified
	}

	if err := m.users.TrackSuccessfulLogin(ctx, user); err != nil {
		m.logger.Error("failed to track successful login: %v", err)
	}

	pair, err := m.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	m.emit(ctx, ActivityEventLoginSuccess, m.actorFor(user), user.ID.String(), nil)

	return pair, nil
}

// Logout closes the session identified by refreshToken. The lookup is scoped
// to the user's own sessions, so a token issued to a different account is
// rejected the same way as one that never existed. Returns the account email
// as acknowledgment.
func (m *Manager) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) (string, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return "", ErrAccountNotFound
		}
		return "", wrapStoreErr(err, "failed to retrieve user during logout")
	}

	removed, err := m.tokens.Remove(ctx, userID, refreshToken)
	if err != nil {
		return "", wrapStoreErr(err, "failed to remove refresh token")
	}

	if !removed {
		return "", ErrInvalidRefreshToken
	}

	m.emit(ctx, ActivityEventLogout, m.actorFor(user), user.ID.String(), nil)

	return user.Email, nil
}

// Refresh exchanges a refresh token for a fresh access/refresh pair. The
// consumed token is invalidated the instant it is used, whether or not the
// caller was the legitimate holder, so replay of a stolen-then-used token
// fails.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	next, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	userID, rotated, err := m.tokens.Rotate(ctx, refreshToken, next)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to rotate refresh token")
	}

	if !rotated {
		return nil, ErrInvalidRefreshToken
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, wrapStoreErr(err, "failed to retrieve user during refresh")
	}

	access, err := m.codec.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	m.emit(ctx, ActivityEventRefresh, m.actorFor(user), user.ID.String(), nil)

	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// ForceLogout drops every active session for the user ("log out of all
// devices").
func (m *Manager) ForceLogout(ctx context.Context, userID uuid.UUID) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapStoreErr(err, "failed to retrieve user during force logout")
	}

	return m.clearSessions(ctx, user, m.actorFor(user))
}

// ForceLogoutByAdmin drops every session for the target user on behalf of an
// already-authorized administrator. The role check itself belongs to the
// boundary layer; the Manager only records who asked.
func (m *Manager) ForceLogoutByAdmin(ctx context.Context, actor ActorRef, targetID uuid.UUID) error {
	user, err := m.users.FindByID(ctx, targetID)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapStoreErr(err, "failed to retrieve user during admin force logout")
	}

	if actor.Type == "" {
		actor.Type = "admin"
	}

	return m.clearSessions(ctx, user, actor)
}

// ConfirmAccount flips an unverified account to verified. Re-confirmation of
// an already verified account is rejected, never silently accepted.
func (m *Manager) ConfirmAccount(ctx context.Context, email string) error {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapStoreErr(err, "failed to retrieve user during confirmation")
	}

	if user.Verified {
		return ErrAlreadyConfirmed
	}

	flipped, err := m.users.MarkVerified(ctx, user.ID)
	if err != nil {
		return wrapStoreErr(err, "failed to mark account verified")
	}

	// A concurrent confirmation may have won the conditional update.
	if !flipped {
		return ErrAlreadyConfirmed
	}

	m.emit(ctx, ActivityEventAccountConfirmed, m.actorFor(user), user.ID.String(), nil)

	return nil
}

// UpdateCredentials merges the provided fields into the account, re-hashing
// the password when present, and returns the sanitized view.
func (m *Manager) UpdateCredentials(ctx context.Context, userID uuid.UUID, update CredentialUpdate) (*Account, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, wrapStoreErr(err, "failed to retrieve user during credential update")
	}

	if update.Password != "" && !user.HasPassword() {
		return nil, ErrExternalProviderOnly
	}

	if err := update.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid credential update")
	}

	if update.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(update.Email))
	}
	if update.FirstName != "" {
		user.FirstName = update.FirstName
	}
	if update.LastName != "" {
		user.LastName = update.LastName
	}
	if update.Phone != "" {
		phone, err := NormalizePhone(update.Phone)
		if err != nil {
			return nil, err
		}
		user.Phone = phone
	}
	if update.Password != "" {
		hash, err := m.hasher.HashPassword(update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	updated, err := m.users.UpdateProfile(ctx, user)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to persist credential update")
	}

	m.emit(ctx, ActivityEventCredentialsUpdated, m.actorFor(user), user.ID.String(), nil)

	return updated.Sanitize(), nil
}

// RequestPasswordReset issues a fresh verification code and stores it on the
// account. The code is returned to the caller; delivering it by email is the
// Facade's job, never the Manager's.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (int, error) {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return 0, ErrAccountNotFound
		}
		return 0, wrapStoreErr(err, "failed to retrieve user during password reset request")
	}

	if !user.HasPassword() {
		return 0, ErrExternalProviderOnly
	}

	if !user.Verified {
		return 0, ErrNotVerified
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		return 0, err
	}

	if err := m.users.SetVerificationCode(ctx, user.ID, code); err != nil {
		return 0, wrapStoreErr(err, "failed to store verification code")
	}

	m.emit(ctx, ActivityEventPasswordResetRequest, m.actorFor(user), user.ID.String(), nil)

	return code, nil
}

// ConfirmPasswordReset swaps the password for an account whose stored
// verification code exactly matches code, then clears the code and drops all
// active sessions so the new password must be used everywhere.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, email, newPassword string, code int) error {
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapStoreErr(err, "failed to retrieve user during password reset")
	}

	if !user.HasPassword() {
		return ErrExternalProviderOnly
	}

	if user.VerificationCode == nil || !IsValidVerificationCode(code) {
		return ErrInvalidVerificationCode
	}

	hash, err := m.hasher.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid new password provided")
	}

	consumed, err := m.users.ConsumeVerificationCode(ctx, user.ID, code, hash)
	if err != nil {
		return wrapStoreErr(err, "failed to consume verification code")
	}

	if !consumed {
		return ErrInvalidVerificationCode
	}

	if _, err := m.tokens.Clear(ctx, user.ID); err != nil {
		m.logger.Error("failed to clear sessions after password reset: %v", err)
	}

	m.emit(ctx, ActivityEventPasswordResetSuccess, m.actorFor(user), user.ID.String(), nil)

	return nil
}

// SessionFromToken verifies a raw access token and returns its stateless
// session view.
func (m *Manager) SessionFromToken(raw string) (Session, error) {
	claims, err := m.codec.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}

	return sessionFromAccessClaims(claims), nil
}

func (m *Manager) openSession(ctx context.Context, user *User) (*TokenPair, error) {
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := m.tokens.Add(ctx, user.ID, refresh); err != nil {
		return nil, wrapStoreErr(err, "failed to persist refresh token")
	}

	access, err := m.codec.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) clearSessions(ctx context.Context, user *User, actor ActorRef) error {
	cleared, err := m.tokens.Clear(ctx, user.ID)
	if err != nil {
		return wrapStoreErr(err, "failed to clear refresh tokens")
	}

	m.emit(ctx, ActivityEventForceLogout, actor, user.ID.String(), map[string]any{
		"sessions_cleared": cleared,
	})

	return nil
}

func (m *Manager) ensureAttemptsAllowed(user *User) error {
	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	if user.LoginAttempts > MaxLoginAttempts {
		return ErrTooManyLoginAttempts
	}

	return nil
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func (m *Manager) actorFor(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}

	return hex.EncodeToString(b), nil
}
