package store

import (
	"context"
	"database/sql"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Watermarks summarize table contents cheaply enough to diff on every poll.
type Watermarks struct {
	MessageSeq  int64
	ChatCount   int64
	StatusSeq   int64
	StatusCount int64
	UserCount   int64
	UserUpdated int64
	MediaSeq    int64
}

// ReadWatermarks reads the current watermarks through q.
func ReadWatermarks(ctx context.Context, q Querier) (Watermarks, error) {
	var w Watermarks
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(MAX(seq), 0) FROM messages),
			(SELECT COUNT(*) FROM chats),
			(SELECT COALESCE(MAX(seq), 0) FROM statuses),
			(SELECT COUNT(*) FROM statuses),
			(SELECT COUNT(*) FROM users),
			(SELECT COALESCE(MAX(updated_at), 0) FROM users),
			(SELECT COALESCE(MAX(seq), 0) FROM media)`).
		Scan(&w.MessageSeq, &w.ChatCount, &w.StatusSeq, &w.StatusCount, &w.UserCount, &w.UserUpdated, &w.MediaSeq)
	return w, err
}

// ChatsWithMessagesAfter lists chats that received messages with seq > after.
func ChatsWithMessagesAfter(ctx context.Context, q Querier, after int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT chat_id FROM messages WHERE seq > ?`, after)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DataVersion returns SQLite's data_version for conn. The value changes when
// another connection commits to the database file.
func DataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v)
	return v, err
}
