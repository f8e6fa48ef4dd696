package store

import "context"

// InsertMessage appends m to its chat and sets m.Seq.
func (db *DB) InsertMessage(ctx context.Context, m *Message) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO messages (message_id, chat_id, sender_id, body, sent_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.SenderID, m.Body, m.SentAt)
	if err != nil {
		return conflict(err)
	}
	m.Seq, err = res.LastInsertId()
	return err
}

// ListMessages returns a chat's full history ordered by sent_at, then append order.
func (db *DB) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, message_id, chat_id, sender_id, body, sent_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY sent_at ASC, seq ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Seq, &m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}
