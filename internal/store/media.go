package store

import (
	"context"
	"database/sql"
	"errors"
)

// InsertMedia records an uploaded object.
func (db *DB) InsertMedia(ctx context.Context, m *MediaObject) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO media (media_id, content_type, size, created_at)
		VALUES (?, ?, ?, ?)`, m.ID, m.ContentType, m.Size, m.CreatedAt)
	return conflict(err)
}

// GetMedia returns an object's metadata, or nil when absent.
func (db *DB) GetMedia(ctx context.Context, id string) (*MediaObject, error) {
	var m MediaObject
	err := db.QueryRowContext(ctx, `
		SELECT media_id, content_type, size, created_at FROM media WHERE media_id = ?`, id).
		Scan(&m.ID, &m.ContentType, &m.Size, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
