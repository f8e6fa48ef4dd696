package store

import (
	"context"
	"database/sql"
	"errors"
)

const chatColumns = `chat_id,
	user1_id, user1_name, user1_image_url, user1_number,
	user2_id, user2_name, user2_image_url, user2_number,
	created_at`

// FindChatByNumbers returns the chat between two phone numbers, or nil. A chat
// may have been stored as (a, b) or (b, a), so both orderings are checked.
func (db *DB) FindChatByNumbers(ctx context.Context, a, b string) (*Chat, error) {
	return scanChat(db.QueryRowContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE (user1_number = ? AND user2_number = ?)
		   OR (user1_number = ? AND user2_number = ?)
		LIMIT 1`, a, b, b, a))
}

// InsertChat stores a new chat. Returns ErrConflict when a chat already exists
// for the same unordered pair of numbers.
func (db *DB) InsertChat(ctx context.Context, c *Chat) error {
	lo, hi := c.User1.Number, c.User2.Number
	if hi < lo {
		lo, hi = hi, lo
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`, pair_lo, pair_hi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ChatID,
		c.User1.UserID, c.User1.Name, c.User1.ImageURL, c.User1.Number,
		c.User2.UserID, c.User2.Name, c.User2.ImageURL, c.User2.Number,
		c.CreatedAt, lo, hi)
	return conflict(err)
}

// GetChat returns a single chat by id, or nil when absent.
func (db *DB) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	return scanChat(db.QueryRowContext(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE chat_id = ?`, chatID))
}

// ListChatsFor returns every chat userID participates in, oldest first.
func (db *DB) ListChatsFor(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY created_at, chat_id`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chats := []Chat{}
	for rows.Next() {
		var c Chat
		if err := rows.Scan(chatDest(&c)...); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// UpdateChatRefs rewrites the embedded snapshot of ref in every chat that
// references it and returns the number of chats touched.
func (db *DB) UpdateChatRefs(ctx context.Context, ref UserRef) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, side := range []string{"user1", "user2"} {
		res, err := tx.ExecContext(ctx, `
			UPDATE chats SET `+side+`_name = ?, `+side+`_image_url = ?, `+side+`_number = ?
			WHERE `+side+`_id = ?
			  AND (`+side+`_name != ? OR `+side+`_image_url != ? OR `+side+`_number != ?)`,
			ref.Name, ref.ImageURL, ref.Number, ref.UserID,
			ref.Name, ref.ImageURL, ref.Number)
		if err != nil {
			return 0, conflict(err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		// pair_lo/pair_hi follow the numbers so the pair index stays truthful.
		if _, err := tx.ExecContext(ctx, `
			UPDATE chats SET
				pair_lo = MIN(user1_number, user2_number),
				pair_hi = MAX(user1_number, user2_number)
			WHERE user1_id = ? OR user2_id = ?`, ref.UserID, ref.UserID); err != nil {
			return 0, conflict(err)
		}
	}
	return total, tx.Commit()
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n)
	return n, err
}

func chatDest(c *Chat) []any {
	return []any{
		&c.ChatID,
		&c.User1.UserID, &c.User1.Name, &c.User1.ImageURL, &c.User1.Number,
		&c.User2.UserID, &c.User2.Name, &c.User2.ImageURL, &c.User2.Number,
		&c.CreatedAt,
	}
}

func scanChat(row *sql.Row) (*Chat, error) {
	var c Chat
	err := row.Scan(chatDest(&c)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
