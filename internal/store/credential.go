package store

import (
	"context"
	"database/sql"
	"errors"
)

// InsertCredential stores a new account. Returns ErrConflict when the email is taken.
func (db *DB) InsertCredential(ctx context.Context, c *Credential) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO credentials (email, user_id, password_hash, created_at)
		VALUES (?, ?, ?, ?)`, c.Email, c.UserID, c.PasswordHash, c.CreatedAt)
	return conflict(err)
}

// GetCredential returns the account for email, or nil when absent.
func (db *DB) GetCredential(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	err := db.QueryRowContext(ctx, `
		SELECT email, user_id, password_hash, created_at FROM credentials WHERE email = ?`, email).
		Scan(&c.Email, &c.UserID, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
