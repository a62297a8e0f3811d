package sessions

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed credential store. It layers the conditional raw
// statements the lifecycle needs on top of the generic repository surface.
type Users interface {
	repository.Repository[*User]
	UserStore

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
	SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code int) error
	ConsumeVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code int, passwordHash string) (bool, error)
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ UserStore                    = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) UpdateProfile(ctx context.Context, user *User) (*User, error) {
	return a.Repository.Update(ctx, user, repository.UpdateByID(user.ID.String()))
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

// MarkVerifiedTx flips is_verified in a single conditional statement so two
// concurrent confirmations cannot both succeed.
func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"is_verified" = TRUE,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."is_verified" = FALSE
			AND "usr"."deleted_at" IS NULL;
	`, time.Now(), id).Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (a *users) SetVerificationCode(ctx context.Context, id uuid.UUID, code int) error {
	return a.SetVerificationCodeTx(ctx, a.db, id, code)
}

func (a *users) SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code int) error {
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"verification_code" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, code, time.Now(), id).Exec(ctx)

	return err
}

func (a *users) ConsumeVerificationCode(ctx context.Context, id uuid.UUID, code int, passwordHash string) (bool, error) {
	return a.ConsumeVerificationCodeTx(ctx, a.db, id, code, passwordHash)
}

// ConsumeVerificationCodeTx clears the code and installs the new hash only
// when the stored code matches, all in one statement. A stale or wrong code
// leaves the record untouched.
func (a *users) ConsumeVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code int, passwordHash string) (bool, error) {
	res, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"verification_code" = NULL,
			"password_hash" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."verification_code" = ?
			AND "usr"."deleted_at" IS NULL;
	`, passwordHash, time.Now(), id, code).Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: the ORM update path will not reset login_attempt_at and
	// login_attempts to their zero values, hence the raw statement.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
