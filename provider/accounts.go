package provider

import (
	"context"

	"github.com/goliatone/go-errors"

	sessions "github.com/pulsefit/go-sessions"
)

// Accounts maps validated provider identities onto local accounts.
type Accounts struct {
	users  sessions.UserStore
	logger sessions.Logger
}

func NewAccounts(users sessions.UserStore) *Accounts {
	return &Accounts{users: users}
}

func (a *Accounts) WithLogger(logger sessions.Logger) *Accounts {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// GetOrRegister resolves the local account for identity, creating one when
// none exists. Created accounts have no password hash, so password flows
// reject them; they are marked verified only when the provider attests the
// email.
func (a *Accounts) GetOrRegister(ctx context.Context, identity *Identity) (*sessions.User, error) {
	if identity == nil || identity.Email == "" {
		return nil, errors.New("identity has no email", errors.CategoryValidation)
	}

	user, err := a.users.FindByEmail(ctx, identity.Email)
	if err == nil {
		return user, nil
	}

	if !sessions.IsRecordNotFound(err) {
		return nil, err
	}

	if a.logger != nil {
		a.logger.Info("registering external account provider=%s subject=%s", identity.Provider, identity.Subject)
	}

	record := &sessions.User{
		Email:      identity.Email,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Verified:   identity.Verified,
		Role:       sessions.RoleMember,
		Provider:   identity.Provider,
		ExternalID: identity.Subject,
	}

	return a.users.Register(ctx, record)
}
