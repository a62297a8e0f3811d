package sessions

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens is the bun backed session collection. One row per live
// session; every mutation is a single conditional statement so concurrent
// logins, logouts, and refreshes never clobber each other.
type RefreshTokens interface {
	repository.Repository[*RefreshToken]
	RefreshTokenStore

	AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error
	RemoveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (bool, error)
	RotateTx(ctx context.Context, tx bun.IDB, oldToken, newToken string) (uuid.UUID, bool, error)
	ClearTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var (
	_ RefreshTokens     = (*refreshTokens)(nil)
	_ RefreshTokenStore = (*refreshTokens)(nil)
)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(rt *RefreshToken) uuid.UUID {
			if rt == nil {
				return uuid.Nil
			}
			return rt.ID
		},
		SetID: func(rt *RefreshToken, id uuid.UUID) {
			if rt != nil {
				rt.ID = id
			}
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) Add(ctx context.Context, userID uuid.UUID, token string) error {
	return r.AddTx(ctx, r.db, userID, token)
}

func (r *refreshTokens) AddTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error {
	record := &RefreshToken{
		ID:     uuid.New(),
		UserID: userID,
		Token:  token,
	}

	_, err := r.Repository.CreateTx(ctx, tx, record)

	return err
}

func (r *refreshTokens) Remove(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	return r.RemoveTx(ctx, r.db, userID, token)
}

// RemoveTx deletes the token scoped to its owner. A token held by a different
// user matches nothing and reports false.
func (r *refreshTokens) RemoveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (bool, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token = ?", token).
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *refreshTokens) Rotate(ctx context.Context, oldToken, newToken string) (uuid.UUID, bool, error) {
	return r.RotateTx(ctx, r.db, oldToken, newToken)
}

// RotateTx swaps oldToken for newToken in one statement. Of N concurrent
// rotations of the same token exactly one sees a row; the rest report false.
func (r *refreshTokens) RotateTx(ctx context.Context, tx bun.IDB, oldToken, newToken string) (uuid.UUID, bool, error) {
	var userID uuid.UUID

	err := tx.NewRaw(`
		UPDATE "refresh_tokens" AS "rt"
		SET
			"token" = ?,
			"created_at" = ?
		WHERE
			("rt".token = ?)
		RETURNING "user_id";
	`, newToken, time.Now(), oldToken).Scan(ctx, &userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}

	return userID, true, nil
}

func (r *refreshTokens) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.ClearTx(ctx, r.db, userID)
}

func (r *refreshTokens) ClearTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *refreshTokens) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Count(ctx)
}
