// Package messagelog is the append-only per-chat message store with live
// snapshot subscriptions.
package messagelog

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

// Log is the message log.
type Log struct {
	db      *store.DB
	engine  *live.Engine
	bus     *bus.Bus
	retry   retry.Policy
	logger  *zap.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

// New creates a message log.
func New(db *store.DB, engine *live.Engine, b *bus.Bus, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		db:      db,
		engine:  engine,
		bus:     b,
		retry:   policy,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock replaces the clock that stamps sentAt. Intended for tests.
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// Append adds a message from senderID to chatID.
func (l *Log) Append(ctx context.Context, chatID, senderID, body string) (store.Message, error) {
	const op = "messagelog.append"
	if strings.TrimSpace(body) == "" {
		return store.Message{}, apperr.New(apperr.InvalidInput, op, "message is empty")
	}

	chat, err := retry.Value(ctx, l.retry, op, func(ctx context.Context) (*store.Chat, error) {
		return l.db.GetChat(ctx, chatID)
	})
	if err != nil {
		return store.Message{}, apperr.Store(op, err)
	}
	if chat == nil {
		return store.Message{}, apperr.New(apperr.NotFound, op, "chat not found")
	}
	if !chat.Has(senderID) {
		return store.Message{}, apperr.New(apperr.InvalidInput, op, "sender is not part of this chat")
	}

	m := store.Message{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		SenderID: senderID,
		Body:     body,
		SentAt:   l.now().UnixMilli(),
	}
	if err := l.retry.Do(ctx, op, func(ctx context.Context) error {
		return l.db.InsertMessage(ctx, &m)
	}); err != nil {
		return store.Message{}, apperr.Store(op, err)
	}

	l.metrics.MessageAppended()
	l.logger.Debug("message appended",
		zap.String("chat_id", chatID),
		zap.String("message_id", m.ID),
		zap.Int64("sent_at", m.SentAt),
	)
	l.bus.Notify(bus.MessagesSubject(chatID))
	return m, nil
}

// History returns the chat's messages ordered by sentAt.
func (l *Log) History(ctx context.Context, chatID string) ([]store.Message, error) {
	msgs, err := retry.Value(ctx, l.retry, "messagelog.history", func(ctx context.Context) ([]store.Message, error) {
		return l.db.ListMessages(ctx, chatID)
	})
	if err != nil {
		return nil, apperr.Store("messagelog.history", err)
	}
	return msgs, nil
}

// Subscribe delivers the full sorted history of chatID now and again after
// every append.
func (l *Log) Subscribe(chatID string, onSnapshot func([]store.Message), onError func(error)) *live.Handle {
	return live.Watch(l.engine, live.Query[[]store.Message]{
		Name:     "messages",
		Subjects: []string{bus.MessagesSubject(chatID)},
		Fetch: func(ctx context.Context) ([]store.Message, error) {
			return l.History(ctx, chatID)
		},
		Equal: sameMessages,
	}, onSnapshot, onError)
}

// Unsubscribe stops h. It is idempotent and accepts nil.
func (l *Log) Unsubscribe(h *live.Handle) {
	h.Cancel()
}

// Messages are immutable, so equal length and equal last seq mean equal logs.
func sameMessages(a, b []store.Message) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return a[len(a)-1].Seq == b[len(b)-1].Seq
}
