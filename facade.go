package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// mailTimeout bounds background mail delivery.
const mailTimeout = 10 * time.Second

// Facade composes the Manager with registration, confirmation links, and
// mail delivery. It is the surface an HTTP layer talks to.
type Facade struct {
	manager  *Manager
	users    UserStore
	codec    *TokenCodec
	cfg      Config
	mailer   Mailer
	logger   Logger
	activity ActivitySink

	// UseHashid derives registration IDs deterministically from the email so
	// repeated imports of the same account converge on one record.
	UseHashid bool
}

// NewFacade builds a Facade over an already configured Manager.
func NewFacade(manager *Manager, users UserStore, cfg Config) *Facade {
	return &Facade{
		manager:  manager,
		users:    users,
		codec:    manager.Codec(),
		cfg:      cfg,
		mailer:   noopMailer{},
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (f *Facade) WithLogger(logger Logger) *Facade {
	if logger != nil {
		f.logger = logger
	}
	return f
}

func (f *Facade) WithMailer(mailer Mailer) *Facade {
	f.mailer = normalizeMailer(mailer)
	return f
}

func (f *Facade) WithActivitySink(sink ActivitySink) *Facade {
	f.activity = normalizeActivitySink(sink)
	return f
}

// Manager exposes the underlying session manager.
func (f *Facade) Manager() *Manager { return f.manager }

// Login authenticates the credentials and opens a session.
func (f *Facade) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	return f.manager.Login(ctx, email, password)
}

// Logout closes the session owned by userID that holds refreshToken.
func (f *Facade) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) (string, error) {
	return f.manager.Logout(ctx, userID, refreshToken)
}

// Refresh rotates a refresh token into a new token pair.
func (f *Facade) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return f.manager.Refresh(ctx, refreshToken)
}

// ForceLogout drops every session held by the user.
func (f *Facade) ForceLogout(ctx context.Context, userID uuid.UUID) error {
	return f.manager.ForceLogout(ctx, userID)
}

// Register creates an unverified password account and emails a confirmation
// link. The account cannot log in until the link is followed.
func (f *Facade) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	if existing, err := f.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, errors.New("email already registered", errors.CategoryConflict).
			WithTextCode("EMAIL_TAKEN").
			WithMetadata(map[string]any{"email": email})
	} else if err != nil && !IsRecordNotFound(err) {
		return nil, wrapStoreErr(err, "failed to check for existing account")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid password provided")
	}

	user := &User{
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		Role:         RoleMember,
	}

	if input.Phone != "" {
		phone, err := NormalizePhone(input.Phone)
		if err != nil {
			return nil, err
		}
		user.Phone = phone
	}

	if f.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := f.users.Register(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrap(err, errors.CategoryConflict, "email already registered").
				WithTextCode("EMAIL_TAKEN").
				WithMetadata(map[string]any{"email": email})
		}
		return nil, wrapStoreErr(err, "could not create user")
	}

	f.record(ctx, ActivityEventAccountRegistered, ActorRef{ID: created.ID.String(), Type: "user"}, created.ID.String())

	f.sendConfirmationEmail(created.Email)

	return created.Sanitize(), nil
}

// ConfirmAccount verifies the signed token from a confirmation link and flips
// the account to verified.
func (f *Facade) ConfirmAccount(ctx context.Context, rawToken string) error {
	email, err := f.codec.VerifyConfirmationToken(rawToken)
	if err != nil {
		return err
	}

	return f.manager.ConfirmAccount(ctx, email)
}

// ResendConfirmation issues a fresh confirmation link for an account that has
// not verified yet.
func (f *Facade) ResendConfirmation(ctx context.Context, email string) error {
	user, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapStoreErr(err, "failed to retrieve user for confirmation email")
	}

	if user.Verified {
		return ErrAlreadyConfirmed
	}

	f.sendConfirmationEmail(user.Email)

	return nil
}

// RequestPasswordReset generates a reset code for the account and emails it.
// The code is never returned to the caller.
func (f *Facade) RequestPasswordReset(ctx context.Context, email string) error {
	code, err := f.manager.RequestPasswordReset(ctx, email)
	if err != nil {
		return err
	}

	f.sendAsync(Message{
		To:      email,
		Subject: "Your password reset code",
		Body:    fmt.Sprintf("Use code %d to reset your password.", code),
	})

	return nil
}

// ConfirmPasswordReset finalizes a reset with the emailed code.
func (f *Facade) ConfirmPasswordReset(ctx context.Context, email, newPassword string, code int) error {
	return f.manager.ConfirmPasswordReset(ctx, email, newPassword, code)
}

// ConfirmationLink builds the signed confirmation URL for email.
func (f *Facade) ConfirmationLink(email string) (string, error) {
	token, err := f.codec.IssueConfirmationToken(email)
	if err != nil {
		return "", err
	}

	host := strings.TrimRight(f.cfg.GetConfirmationHost(), "/")

	return fmt.Sprintf("%s/auth/confirmation/%s", host, token), nil
}

func (f *Facade) sendConfirmationEmail(email string) {
	link, err := f.ConfirmationLink(email)
	if err != nil {
		f.logger.Error("failed to build confirmation link: %v", err)
		return
	}

	f.sendAsync(Message{
		To:      email,
		Subject: "Confirm your account",
		Body:    fmt.Sprintf("Follow this link to confirm your account: %s", link),
	})
}

// sendAsync delivers mail in the background; delivery failures are logged,
// never surfaced to the request that triggered them.
func (f *Facade) sendAsync(msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := f.mailer.Send(ctx, msg); err != nil {
			f.logger.Error("failed to send mail to %s: %v", msg.To, err)
		}
	}()
}

func (f *Facade) record(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := f.activity.Record(ctx, event); err != nil {
		f.logger.Warn("activity sink record error: %v", err)
	}
}
