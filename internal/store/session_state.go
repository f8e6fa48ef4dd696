package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SetSessionValue stores a per-session key. Keys are namespaced by the caller.
func (db *DB) SetSessionValue(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// GetSessionValue reads a per-session key. ok is false when the key is unset.
func (db *DB) GetSessionValue(ctx context.Context, key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// DeleteSessionValue removes a per-session key. Missing keys are not an error.
func (db *DB) DeleteSessionValue(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM session_state WHERE key = ?`, key)
	return err
}

// InitSessionValue stores value under key unless the key is already set, and
// returns whichever value is stored afterwards.
func (db *DB) InitSessionValue(ctx context.Context, key, value string) (string, error) {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		key, value, time.Now().UnixMilli()); err != nil {
		return "", conflict(err)
	}
	var stored string
	err := db.QueryRowContext(ctx, `SELECT value FROM session_state WHERE key = ?`, key).Scan(&stored)
	return stored, err
}
