// Package statusfeed stores ephemeral status posts and builds each viewer's
// feed from the posts of their neighbors.
package statusfeed

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// Window is how long a post stays visible, in milliseconds.
const Window int64 = 24 * 60 * 60 * 1000

// Neighbors provides the live neighbor set of a user: their relationship
// partners plus the user itself.
type Neighbors interface {
	NeighborsQuery(userID string) live.Query[[]string]
}

// Store is the status broadcast store.
type Store struct {
	db        *store.DB
	neighbors Neighbors
	engine    *live.Engine
	bus       *bus.Bus
	retry     retry.Policy
	logger    *zap.Logger
	metrics   *metrics.Metrics

	now func() time.Time
}

// New creates a status store.
func New(db *store.DB, n Neighbors, engine *live.Engine, b *bus.Bus, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:        db,
		neighbors: n,
		engine:    engine,
		bus:       b,
		retry:     policy,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for postedAt and for the visibility
// window. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Publish posts mediaURL on behalf of author.
func (s *Store) Publish(ctx context.Context, author store.UserRef, mediaURL string) (store.StatusPost, error) {
	const op = "statusfeed.publish"
	if author.UserID == "" {
		return store.StatusPost{}, apperr.New(apperr.InvalidInput, op, "author is required")
	}
	if strings.TrimSpace(mediaURL) == "" {
		return store.StatusPost{}, apperr.New(apperr.InvalidInput, op, "media is required")
	}

	p := store.StatusPost{
		ID:       uuid.NewString(),
		Author:   author,
		MediaURL: mediaURL,
		PostedAt: s.now().UnixMilli(),
	}
	if err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.db.InsertStatus(ctx, &p)
	}); err != nil {
		return store.StatusPost{}, apperr.Store(op, err)
	}

	s.metrics.StatusPublished()
	s.logger.Info("status published", zap.String("status_id", p.ID), zap.String("author", author.UserID))
	s.bus.Notify(bus.KindStatuses)
	return p, nil
}

// Visible returns the posts by authors that are still inside the window.
func (s *Store) Visible(ctx context.Context, authors []string) ([]store.StatusPost, error) {
	since := s.now().UnixMilli() - Window
	posts, err := retry.Value(ctx, s.retry, "statusfeed.list", func(ctx context.Context) ([]store.StatusPost, error) {
		return s.db.ListStatuses(ctx, authors, since)
	})
	if err != nil {
		return nil, apperr.Store("statusfeed.list", err)
	}
	return posts, nil
}

// PostsQuery watches the visible posts of a fixed author set.
func (s *Store) PostsQuery(authors []string) live.Query[[]store.StatusPost] {
	authors = append([]string(nil), authors...)
	return live.Query[[]store.StatusPost]{
		Name:     "statuses",
		Subjects: []string{bus.KindStatuses},
		Fetch: func(ctx context.Context) ([]store.StatusPost, error) {
			return s.Visible(ctx, authors)
		},
	}
}

// SubscribeFeed delivers viewerID's feed. Whenever the neighbor set changes
// the posts subscription is torn down and reopened for the new set.
func (s *Store) SubscribeFeed(viewerID string, onSnapshot func([]store.StatusPost), onError func(error)) *live.Handle {
	return live.Switch(s.engine, s.neighbors.NeighborsQuery(viewerID), s.PostsQuery, onSnapshot, onError)
}

// Expire deletes posts that fell out of the window as of now and returns how
// many were removed.
func (s *Store) Expire(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UnixMilli() - Window
	n, err := retry.Value(ctx, s.retry, "statusfeed.expire", func(ctx context.Context) (int64, error) {
		return s.db.DeleteStatusesBefore(ctx, cutoff)
	})
	if err != nil {
		return 0, apperr.Store("statusfeed.expire", err)
	}
	if n > 0 {
		s.metrics.StatusesExpired(int(n))
		s.bus.Notify(bus.KindStatuses)
	}
	return n, nil
}

// AuthorStatuses groups the posts of one author.
type AuthorStatuses struct {
	Author store.UserRef
	Posts  []store.StatusPost
}

// FeedView is a feed split for display: the viewer's own posts, then one
// entry per other author in order of their first post.
type FeedView struct {
	Mine   []store.StatusPost
	Others []AuthorStatuses
}

// Group splits posts for viewerID.
func Group(posts []store.StatusPost, viewerID string) FeedView {
	var v FeedView
	index := make(map[string]int)
	for _, p := range posts {
		if p.Author.UserID == viewerID {
			v.Mine = append(v.Mine, p)
			continue
		}
		i, ok := index[p.Author.UserID]
		if !ok {
			i = len(v.Others)
			index[p.Author.UserID] = i
			v.Others = append(v.Others, AuthorStatuses{Author: p.Author})
		}
		// Later posts carry the freshest author snapshot.
		v.Others[i].Author = p.Author
		v.Others[i].Posts = append(v.Others[i].Posts, p)
	}
	return v
}
