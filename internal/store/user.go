package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserPatch lists the fields MergeUser may change. Nil fields are left alone.
type UserPatch struct {
	Name     *string
	Number   *string
	ImageURL *string
}

// GetUser returns a user by id, or nil when absent.
func (db *DB) GetUser(ctx context.Context, userID string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx, `
		SELECT user_id, name, number, image_url, created_at, updated_at
		FROM users WHERE user_id = ?`, userID))
}

// GetUserByNumber returns the user owning number, or nil when absent.
func (db *DB) GetUserByNumber(ctx context.Context, number string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx, `
		SELECT user_id, name, number, image_url, created_at, updated_at
		FROM users WHERE number = ? AND number != ''`, number))
}

// MergeUser creates the user with defaults for unset fields or updates only
// the fields present in p. Returns ErrConflict when the number belongs to
// another user.
func (db *DB) MergeUser(ctx context.Context, userID string, p UserPatch) (*User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	u, err := scanUser(tx.QueryRowContext(ctx, `
		SELECT user_id, name, number, image_url, created_at, updated_at
		FROM users WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	if u == nil {
		u = &User{UserID: userID, CreatedAt: now}
	}
	changed := u.UpdatedAt == 0
	apply := func(dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}
	apply(&u.Name, p.Name)
	apply(&u.Number, p.Number)
	apply(&u.ImageURL, p.ImageURL)
	if !changed {
		return u, nil
	}
	u.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, name, number, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			number = excluded.number,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at`,
		u.UserID, u.Name, u.Number, u.ImageURL, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return nil, conflict(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}
	return u, nil
}

// UserCount returns the number of directory entries.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Name, &u.Number, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
