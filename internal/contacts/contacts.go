// Package contacts stores the relationships between users. A relationship
// is a chat between two phone numbers and exists at most once per unordered
// pair.
package contacts

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// Graph is the contact graph store.
type Graph struct {
	db     *store.DB
	dir    *directory.Directory
	engine *live.Engine
	bus    *bus.Bus
	retry  retry.Policy
	logger *zap.Logger

	now func() time.Time
}

// New creates a contact graph.
func New(db *store.DB, dir *directory.Directory, engine *live.Engine, b *bus.Bus, policy retry.Policy, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		db:     db,
		dir:    dir,
		engine: engine,
		bus:    b,
		retry:  policy,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock used for createdAt. Intended for tests.
func (g *Graph) SetClock(now func() time.Time) {
	g.now = now
}

// Find returns the relationship between two numbers in either order, or nil.
func (g *Graph) Find(ctx context.Context, a, b string) (*store.Chat, error) {
	c, err := retry.Value(ctx, g.retry, "contacts.find", func(ctx context.Context) (*store.Chat, error) {
		return g.db.FindChatByNumbers(ctx, a, b)
	})
	if err != nil {
		return nil, apperr.Store("contacts.find", err)
	}
	return c, nil
}

// Create opens a relationship between self and the user owning target.
func (g *Graph) Create(ctx context.Context, self store.User, target string) (store.Chat, error) {
	const op = "contacts.create"

	// Validation runs before any store access.
	if target == "" {
		return store.Chat{}, apperr.New(apperr.InvalidInput, op, "number is required")
	}
	if !directory.ValidNumber(target) {
		return store.Chat{}, apperr.New(apperr.InvalidInput, op, "number must contain digits only")
	}
	if self.UserID == "" {
		return store.Chat{}, apperr.New(apperr.InvalidInput, op, "user id is required")
	}
	if self.Number == "" {
		return store.Chat{}, apperr.New(apperr.InvalidInput, op, "set your own number first")
	}
	if self.Number == target {
		return store.Chat{}, apperr.New(apperr.InvalidInput, op, "cannot add your own number")
	}

	existing, err := g.Find(ctx, self.Number, target)
	if err != nil {
		return store.Chat{}, err
	}
	if existing != nil {
		return store.Chat{}, apperr.New(apperr.AlreadyExists, op, "chat already exists")
	}

	partner, found, err := g.dir.LookupByNumber(ctx, target)
	if err != nil {
		return store.Chat{}, err
	}
	if !found {
		return store.Chat{}, apperr.New(apperr.TargetNotFound, op, "number not found")
	}

	c := store.Chat{
		ChatID:    uuid.NewString(),
		User1:     self.Ref(),
		User2:     partner.Ref(),
		CreatedAt: g.now().UnixMilli(),
	}
	err = g.retry.Do(ctx, op, func(ctx context.Context) error {
		return g.db.InsertChat(ctx, &c)
	})
	if errors.Is(err, store.ErrConflict) {
		return store.Chat{}, apperr.New(apperr.AlreadyExists, op, "chat already exists")
	}
	if err != nil {
		return store.Chat{}, apperr.Store(op, err)
	}

	g.logger.Info("chat created",
		zap.String("chat_id", c.ChatID),
		zap.String("user1", c.User1.UserID),
		zap.String("user2", c.User2.UserID),
	)
	g.bus.Notify(bus.KindChats)
	return c, nil
}

// Get returns a relationship by id.
func (g *Graph) Get(ctx context.Context, chatID string) (store.Chat, error) {
	c, err := retry.Value(ctx, g.retry, "contacts.get", func(ctx context.Context) (*store.Chat, error) {
		return g.db.GetChat(ctx, chatID)
	})
	if err != nil {
		return store.Chat{}, apperr.Store("contacts.get", err)
	}
	if c == nil {
		return store.Chat{}, apperr.New(apperr.NotFound, "contacts.get", "chat not found")
	}
	return *c, nil
}

// ListFor returns every relationship userID participates in, oldest first.
func (g *Graph) ListFor(ctx context.Context, userID string) ([]store.Chat, error) {
	chats, err := retry.Value(ctx, g.retry, "contacts.list", func(ctx context.Context) ([]store.Chat, error) {
		return g.db.ListChatsFor(ctx, userID)
	})
	if err != nil {
		return nil, apperr.Store("contacts.list", err)
	}
	return chats, nil
}

// Neighbors returns the sorted ids of userID's partners plus userID itself.
func (g *Graph) Neighbors(ctx context.Context, userID string) ([]string, error) {
	chats, err := g.ListFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return neighbors(userID, chats), nil
}

// ChatsQuery is the live query behind Watch.
func (g *Graph) ChatsQuery(userID string) live.Query[[]store.Chat] {
	return live.Query[[]store.Chat]{
		Name:     "chats",
		Subjects: []string{bus.KindChats},
		Fetch: func(ctx context.Context) ([]store.Chat, error) {
			return g.ListFor(ctx, userID)
		},
	}
}

// NeighborsQuery watches userID's neighbor set. It only redelivers when the
// set itself changes.
func (g *Graph) NeighborsQuery(userID string) live.Query[[]string] {
	return live.Query[[]string]{
		Name:     "neighbors",
		Subjects: []string{bus.KindChats},
		Fetch: func(ctx context.Context) ([]string, error) {
			return g.Neighbors(ctx, userID)
		},
		Equal:    func(a, b []string) bool { return slices.Equal(a, b) },
	}
}

// Watch delivers userID's relationship list now and after every change.
func (g *Graph) Watch(userID string, onSnapshot func([]store.Chat), onError func(error)) *live.Handle {
	return live.Watch(g.engine, g.ChatsQuery(userID), onSnapshot, onError)
}

func neighbors(userID string, chats []store.Chat) []string {
	ids := []string{userID}
	for _, c := range chats {
		if p, ok := c.Partner(userID); ok {
			ids = append(ids, p.UserID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
