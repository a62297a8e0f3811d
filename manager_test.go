package sessions_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessions "github.com/pulsefit/go-sessions"
)

// plainAuthenticator compares passwords verbatim so tests skip bcrypt work.
type plainAuthenticator struct{}

func (plainAuthenticator) HashPassword(password string) (string, error) {
	return "hash:" + password, nil
}

func (plainAuthenticator) ComparePasswordAndHash(password, hash string) error {
	if "hash:"+password != hash {
		return sessions.ErrMismatchedHashAndPassword
	}
	return nil
}

func testCodec() *sessions.TokenCodec {
	return sessions.NewTokenCodec(
		sessions.TokenConfig{
			Secret:   []byte("access-secret"),
			TTL:      time.Hour,
			Issuer:   "test-issuer",
			Audience: []string{"test:audience"},
		},
		sessions.TokenConfig{
			Secret:   []byte("confirmation-secret"),
			TTL:      24 * time.Hour,
			Issuer:   "test-issuer",
			Audience: []string{"test:audience"},
		},
	)
}

func verifiedUser(email, password string) *sessions.User {
	return &sessions.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash:" + password,
		Verified:     true,
		Role:         sessions.RoleMember,
	}
}

func newTestManager(users *memUserStore, tokens *memTokenStore) *sessions.Manager {
	return sessions.NewManager(users, tokens, testCodec()).
		WithPasswordAuthenticator(plainAuthenticator{})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login issues both tokens", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		tokens := newMemTokenStore()
		manager := newTestManager(users, tokens)

		pair, err := manager.Login(ctx, "athlete@example.com", "password123")

		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.True(t, tokens.has(pair.RefreshToken))

		claims, err := manager.Codec().VerifyAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())

		stored := users.get(user.ID)
		assert.NotNil(t, stored.LoggedInAt)
	})

	t.Run("each login appends a session", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		tokens := newMemTokenStore()
		manager := newTestManager(users, tokens)

		first, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)
		second, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		count, err := tokens.CountForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("unknown account", func(t *testing.T) {
		manager := newTestManager(newMemUserStore(), newMemTokenStore())

		_, err := manager.Login(ctx, "nobody@example.com", "password123")

		assert.ErrorIs(t, err, sessions.ErrAccountNotFound)
	})

	t.Run("wrong password increments attempts", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		_, err := manager.Login(ctx, "athlete@example.com", "wrong")

		assert.ErrorIs(t, err, sessions.ErrAuthenticationFailed)
		assert.Equal(t, 1, users.get(user.ID).LoginAttempts)
	})

	t.Run("unverified account", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		user.Verified = false
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.Login(ctx, "athlete@example.com", "password123")

		assert.ErrorIs(t, err, sessions.ErrNotVerified)
	})

	t.Run("external provider account", func(t *testing.T) {
		user := &sessions.User{
			ID:       uuid.New(),
			Email:    "external@example.com",
			Verified: true,
			Provider: "google",
		}
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.Login(ctx, "external@example.com", "password123")

		assert.ErrorIs(t, err, sessions.ErrExternalProviderOnly)
	})

	t.Run("too many attempts inside cooldown", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		now := time.Now()
		user.LoginAttempts = sessions.MaxLoginAttempts + 1
		user.LoginAttemptAt = &now
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.Login(ctx, "athlete@example.com", "password123")

		assert.ErrorIs(t, err, sessions.ErrTooManyLoginAttempts)
	})

	t.Run("attempts reset after cooldown window", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		stale := time.Now().Add(-48 * time.Hour)
		user.LoginAttempts = sessions.MaxLoginAttempts + 1
		user.LoginAttemptAt = &stale
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.Login(ctx, "athlete@example.com", "password123")

		assert.NoError(t, err)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the presented token", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		tokens := newMemTokenStore()
		manager := newTestManager(users, tokens)

		first, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)
		second, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		email, err := manager.Logout(ctx, user.ID, first.RefreshToken)

		require.NoError(t, err)
		assert.Equal(t, "athlete@example.com", email)
		assert.False(t, tokens.has(first.RefreshToken))
		assert.True(t, tokens.has(second.RefreshToken))
	})

	t.Run("token owned by another user is rejected", func(t *testing.T) {
		owner := verifiedUser("owner@example.com", "password123")
		other := verifiedUser("other@example.com", "password123")
		users := newMemUserStore(owner, other)
		tokens := newMemTokenStore()
		manager := newTestManager(users, tokens)

		pair, err := manager.Login(ctx, "owner@example.com", "password123")
		require.NoError(t, err)

		_, err = manager.Logout(ctx, other.ID, pair.RefreshToken)

		assert.ErrorIs(t, err, sessions.ErrInvalidRefreshToken)
		assert.True(t, tokens.has(pair.RefreshToken))
	})

	t.Run("unknown token", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.Logout(ctx, user.ID, "no-such-token")

		assert.ErrorIs(t, err, sessions.ErrInvalidRefreshToken)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the refresh token", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		tokens := newMemTokenStore()
		manager := newTestManager(newMemUserStore(user), tokens)

		pair, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		next, err := manager.Refresh(ctx, pair.RefreshToken)

		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
		assert.False(t, tokens.has(pair.RefreshToken))
		assert.True(t, tokens.has(next.RefreshToken))
	})

	t.Run("consumed token cannot be replayed", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		pair, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		_, err = manager.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)

		_, err = manager.Refresh(ctx, pair.RefreshToken)

		assert.ErrorIs(t, err, sessions.ErrInvalidRefreshToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		manager := newTestManager(newMemUserStore(), newMemTokenStore())

		_, err := manager.Refresh(ctx, "never-issued")

		assert.ErrorIs(t, err, sessions.ErrInvalidRefreshToken)
	})
}

func TestForceLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears every session", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		tokens := newMemTokenStore()
		manager := newTestManager(newMemUserStore(user), tokens)

		_, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)
		_, err = manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, manager.ForceLogout(ctx, user.ID))

		count, err := tokens.CountForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("admin variant records the actor", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		tokens := newMemTokenStore()
		sink := &recordingSink{}
		manager := newTestManager(newMemUserStore(user), tokens).
			WithActivitySink(sink)

		_, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		actor := sessions.ActorRef{ID: uuid.New().String(), Type: "admin"}
		require.NoError(t, manager.ForceLogoutByAdmin(ctx, actor, user.ID))

		count, err := tokens.CountForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		types := sink.types()
		require.NotEmpty(t, types)
		assert.Equal(t, sessions.ActivityEventForceLogout, types[len(types)-1])
	})

	t.Run("unknown account", func(t *testing.T) {
		manager := newTestManager(newMemUserStore(), newMemTokenStore())

		err := manager.ForceLogout(ctx, uuid.New())

		assert.ErrorIs(t, err, sessions.ErrAccountNotFound)
	})
}

func TestConfirmAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("flips unverified account", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		user.Verified = false
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		require.NoError(t, manager.ConfirmAccount(ctx, "athlete@example.com"))
		assert.True(t, users.get(user.ID).Verified)
	})

	t.Run("already confirmed is rejected", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		err := manager.ConfirmAccount(ctx, "athlete@example.com")

		assert.ErrorIs(t, err, sessions.ErrAlreadyConfirmed)
	})

	t.Run("unknown account", func(t *testing.T) {
		manager := newTestManager(newMemUserStore(), newMemTokenStore())

		err := manager.ConfirmAccount(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, sessions.ErrAccountNotFound)
	})
}

func TestUpdateCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("merges provided fields", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		account, err := manager.UpdateCredentials(ctx, user.ID, sessions.CredentialUpdate{
			FirstName: "Jordan",
			Password:  "newpassword123",
		})

		require.NoError(t, err)
		assert.Equal(t, "Jordan", account.FirstName)
		assert.Equal(t, "athlete@example.com", account.Email)

		stored := users.get(user.ID)
		assert.Equal(t, "hash:newpassword123", stored.PasswordHash)
	})

	t.Run("mixed case email is stored lowercase", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		account, err := manager.UpdateCredentials(ctx, user.ID, sessions.CredentialUpdate{
			Email: "NewAddress@Example.com",
		})

		require.NoError(t, err)
		assert.Equal(t, "newaddress@example.com", account.Email)

		_, err = manager.Login(ctx, "newaddress@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("password change rejected for external accounts", func(t *testing.T) {
		user := &sessions.User{
			ID:       uuid.New(),
			Email:    "external@example.com",
			Verified: true,
			Provider: "google",
		}
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.UpdateCredentials(ctx, user.ID, sessions.CredentialUpdate{
			Password: "newpassword123",
		})

		assert.ErrorIs(t, err, sessions.ErrExternalProviderOnly)
	})

	t.Run("invalid update payload", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.UpdateCredentials(ctx, user.ID, sessions.CredentialUpdate{
			Password: "short",
		})

		assert.Error(t, err)
	})
}

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a code in range", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		code, err := manager.RequestPasswordReset(ctx, "athlete@example.com")

		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, sessions.VerificationCodeMin)
		assert.LessOrEqual(t, code, sessions.VerificationCodeMax)

		stored := users.get(user.ID)
		require.NotNil(t, stored.VerificationCode)
		assert.Equal(t, code, *stored.VerificationCode)
	})

	t.Run("external provider account", func(t *testing.T) {
		user := &sessions.User{
			ID:       uuid.New(),
			Email:    "external@example.com",
			Verified: true,
			Provider: "google",
		}
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		_, err := manager.RequestPasswordReset(ctx, "external@example.com")

		assert.ErrorIs(t, err, sessions.ErrExternalProviderOnly)
	})

	t.Run("unknown account", func(t *testing.T) {
		manager := newTestManager(newMemUserStore(), newMemTokenStore())

		_, err := manager.RequestPasswordReset(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, sessions.ErrAccountNotFound)
	})
}

func TestConfirmPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("swaps password and clears sessions", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		tokens := newMemTokenStore()
		manager := newTestManager(users, tokens)

		_, err := manager.Login(ctx, "athlete@example.com", "password123")
		require.NoError(t, err)

		code, err := manager.RequestPasswordReset(ctx, "athlete@example.com")
		require.NoError(t, err)

		err = manager.ConfirmPasswordReset(ctx, "athlete@example.com", "newpassword123", code)
		require.NoError(t, err)

		stored := users.get(user.ID)
		assert.Equal(t, "hash:newpassword123", stored.PasswordHash)
		assert.Nil(t, stored.VerificationCode)

		count, err := tokens.CountForUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		_, err = manager.Login(ctx, "athlete@example.com", "newpassword123")
		assert.NoError(t, err)
	})

	t.Run("wrong code leaves the account untouched", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		users := newMemUserStore(user)
		manager := newTestManager(users, newMemTokenStore())

		code, err := manager.RequestPasswordReset(ctx, "athlete@example.com")
		require.NoError(t, err)

		wrong := code + 1
		if wrong > sessions.VerificationCodeMax {
			wrong = sessions.VerificationCodeMin
		}

		err = manager.ConfirmPasswordReset(ctx, "athlete@example.com", "newpassword123", wrong)

		assert.ErrorIs(t, err, sessions.ErrInvalidVerificationCode)
		assert.Equal(t, "hash:password123", users.get(user.ID).PasswordHash)
	})

	t.Run("no outstanding code", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		err := manager.ConfirmPasswordReset(ctx, "athlete@example.com", "newpassword123", sessions.VerificationCodeMin)

		assert.ErrorIs(t, err, sessions.ErrInvalidVerificationCode)
	})

	t.Run("code is single use", func(t *testing.T) {
		user := verifiedUser("athlete@example.com", "password123")
		manager := newTestManager(newMemUserStore(user), newMemTokenStore())

		code, err := manager.RequestPasswordReset(ctx, "athlete@example.com")
		require.NoError(t, err)

		require.NoError(t, manager.ConfirmPasswordReset(ctx, "athlete@example.com", "newpassword123", code))

		err = manager.ConfirmPasswordReset(ctx, "athlete@example.com", "anotherpass123", code)

		assert.ErrorIs(t, err, sessions.ErrInvalidVerificationCode)
	})
}

func TestSessionFromToken(t *testing.T) {
	ctx := context.Background()

	user := verifiedUser("athlete@example.com", "password123")
	user.Role = sessions.RoleAdminTier1
	manager := newTestManager(newMemUserStore(user), newMemTokenStore())

	pair, err := manager.Login(ctx, "athlete@example.com", "password123")
	require.NoError(t, err)

	session, err := manager.SessionFromToken(pair.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), session.GetUserID())
	assert.Equal(t, string(sessions.RoleAdminTier1), session.GetRole())

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)

	_, err = manager.SessionFromToken(strings.Repeat("x", 32))
	assert.ErrorIs(t, err, sessions.ErrTokenInvalid)
}
