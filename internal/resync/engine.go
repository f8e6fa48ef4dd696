// Package resync keeps the profile snapshots embedded in chats and status
// posts in step with the directory.
package resync

import (
	"context"
	"fmt"

	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// Engine rewrites denormalized user refs after identity updates.
// It subscribes to identity events on the bus and processes them in order.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	retry  retry.Policy
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new re-sync engine.
func NewEngine(db *store.DB, b *bus.Bus, policy retry.Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		retry:  policy,
		logger: logger,
	}
}

// Start subscribes to identity updates on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe(bus.KindIdentity, 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the event loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	u, ok := evt.Payload.(store.User)
	if !ok {
		return
	}
	chats, posts, err := e.Rewrite(ctx, u.Ref())
	if err != nil {
		e.logger.Error("failed to re-sync user refs", zap.Error(err), zap.String("user_id", u.UserID))
		return
	}
	if chats > 0 || posts > 0 {
		e.logger.Info("user refs re-synced",
			zap.String("user_id", u.UserID),
			zap.Int64("chats", chats),
			zap.Int64("statuses", posts),
		)
	}
}

// Rewrite updates every chat and status post that embeds ref and returns
// how many of each changed.
func (e *Engine) Rewrite(ctx context.Context, ref store.UserRef) (chats, posts int64, err error) {
	chats, err = retry.Value(ctx, e.retry, "resync.chats", func(ctx context.Context) (int64, error) {
		return e.db.UpdateChatRefs(ctx, ref)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rewrite chat refs: %w", err)
	}
	if chats > 0 {
		e.bus.Notify(bus.KindChats)
	}

	posts, err = retry.Value(ctx, e.retry, "resync.statuses", func(ctx context.Context) (int64, error) {
		return e.db.UpdateStatusRefs(ctx, ref)
	})
	if err != nil {
		return chats, 0, fmt.Errorf("rewrite status refs: %w", err)
	}
	if posts > 0 {
		e.bus.Notify(bus.KindStatuses)
	}
	return chats, posts, nil
}
