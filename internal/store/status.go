package store

import (
	"context"
	"strings"
)

// InsertStatus stores a status post.
func (db *DB) InsertStatus(ctx context.Context, s *StatusPost) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO statuses (status_id, author_id, author_name, author_image_url, author_number, media_url, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Author.UserID, s.Author.Name, s.Author.ImageURL, s.Author.Number, s.MediaURL, s.PostedAt)
	return conflict(err)
}

// ListStatuses returns posts by any of authorIDs with posted_at >= since,
// oldest first.
func (db *DB) ListStatuses(ctx context.Context, authorIDs []string, since int64) ([]StatusPost, error) {
	posts := []StatusPost{}
	if len(authorIDs) == 0 {
		return posts, nil
	}
	args := make([]any, 0, len(authorIDs)+1)
	for _, id := range authorIDs {
		args = append(args, id)
	}
	args = append(args, since)

	rows, err := db.QueryContext(ctx, `
		SELECT status_id, author_id, author_name, author_image_url, author_number, media_url, posted_at
		FROM statuses
		WHERE author_id IN (`+placeholders(len(authorIDs))+`) AND posted_at >= ?
		ORDER BY posted_at ASC, status_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var s StatusPost
		if err := rows.Scan(&s.ID, &s.Author.UserID, &s.Author.Name, &s.Author.ImageURL, &s.Author.Number, &s.MediaURL, &s.PostedAt); err != nil {
			return nil, err
		}
		posts = append(posts, s)
	}
	return posts, rows.Err()
}

// DeleteStatusesBefore removes posts with posted_at < cutoff.
func (db *DB) DeleteStatusesBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM statuses WHERE posted_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateStatusRefs rewrites the author snapshot on every post by ref.UserID.
func (db *DB) UpdateStatusRefs(ctx context.Context, ref UserRef) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE statuses SET author_name = ?, author_image_url = ?, author_number = ?
		WHERE author_id = ?
		  AND (author_name != ? OR author_image_url != ? OR author_number != ?)`,
		ref.Name, ref.ImageURL, ref.Number, ref.UserID,
		ref.Name, ref.ImageURL, ref.Number)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
