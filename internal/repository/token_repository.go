package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/program-planner/internal/database"
	"github.com/iliyamo/program-planner/internal/model"
)

// ErrRefreshInvalid is returned for refresh tokens that are unknown,
// revoked or expired.  Callers answer all three the same way.
var ErrRefreshInvalid = errors.New("refresh token invalid")

// TokenRepo stores refresh tokens by their SHA-256 hash.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a newly issued refresh token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, timestamp(exp), timestamp(database.Now()))
	return err
}

// Lookup loads the row for tokenHash whatever its state.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var (
		t                           model.RefreshToken
		expires, revoked, createdAt dbTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &revoked, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	t.ExpiresAt = expires.Time
	t.RevokedAt = revoked.ptr()
	t.CreatedAt = createdAt.Time
	return &t, nil
}

// ValidateRefresh returns the owner of a usable token, or ErrRefreshInvalid.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	t, err := r.Lookup(ctx, tokenHash)
	if err != nil {
		return 0, err
	}
	if !t.Usable(database.Now()) {
		return 0, ErrRefreshInvalid
	}
	return t.UserID, nil
}

// RevokeByHash revokes one token.  Revoking twice keeps the first time.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		timestamp(database.Now()), tokenHash)
	return err
}

// RevokeAllForUser revokes every active token of a user (logout everywhere).
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		timestamp(database.Now()), userID)
	return err
}
