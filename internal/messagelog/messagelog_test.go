package messagelog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
)

func setup(t *testing.T) (*Log, *live.Engine, string) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	chat := store.Chat{
		ChatID:    "chat-1",
		User1:     store.UserRef{UserID: "u1", Number: "5551112222"},
		User2:     store.UserRef{UserID: "u2", Number: "5553334444"},
		CreatedAt: 1,
	}
	if err := db.InsertChat(ctx, &chat); err != nil {
		t.Fatal(err)
	}

	b := bus.New()
	engine := live.NewEngine(b, nil, nil)
	t.Cleanup(engine.Close)
	return New(db, engine, b, retry.DefaultPolicy(), nil, nil), engine, chat.ChatID
}

// clock returns the given instants in order, then keeps returning the last.
func clock(ms ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		v := ms[min(i, len(ms)-1)]
		i++
		return time.UnixMilli(v)
	}
}

func sentAts(msgs []store.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.SentAt
	}
	return out
}

func TestSubscribeDeliversSortedHistory(t *testing.T) {
	l, _, chatID := setup(t)
	ctx := context.Background()
	const T = 1_700_000_000_000

	l.SetClock(clock(T+2, T, T+1))
	for _, body := range []string{"third", "first", "second"} {
		if _, err := l.Append(ctx, chatID, "u1", body); err != nil {
			t.Fatal(err)
		}
	}

	snaps := make(chan []store.Message, 1)
	h := l.Subscribe(chatID, func(m []store.Message) { snaps <- m }, nil)
	defer live.Stop(h)

	select {
	case got := <-snaps:
		want := []int64{T, T + 1, T + 2}
		gotAt := sentAts(got)
		if len(gotAt) != 3 {
			t.Fatalf("delivered %v, want %v", gotAt, want)
		}
		for i := range want {
			if gotAt[i] != want[i] {
				t.Errorf("delivered %v, want %v", gotAt, want)
				break
			}
		}
		if got[0].Body != "first" || got[2].Body != "third" {
			t.Errorf("bodies = %q..%q", got[0].Body, got[2].Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
}

func TestSubscribeRedeliversOnAppend(t *testing.T) {
	l, _, chatID := setup(t)
	ctx := context.Background()
	l.SetClock(clock(100, 50, 200))

	snaps := make(chan []store.Message, 8)
	h := l.Subscribe(chatID, func(m []store.Message) { snaps <- m }, nil)
	defer live.Stop(h)

	next := func() []store.Message {
		t.Helper()
		select {
		case m := <-snaps:
			return m
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for snapshot")
			return nil
		}
	}

	if got := next(); len(got) != 0 {
		t.Fatalf("initial snapshot = %v, want empty", got)
	}

	for n, body := range []string{"a", "b", "c"} {
		if _, err := l.Append(ctx, chatID, "u2", body); err != nil {
			t.Fatal(err)
		}
		got := next()
		if len(got) != n+1 {
			t.Fatalf("snapshot after %d appends has %d messages", n+1, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].SentAt < got[i-1].SentAt {
				t.Errorf("snapshot not sorted: %v", sentAts(got))
			}
		}
	}

	final, err := l.History(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(final) != 3 || final[0].Body != "b" {
		t.Errorf("history = %v", sentAts(final))
	}
}

func TestAppendValidation(t *testing.T) {
	l, _, chatID := setup(t)

	tests := []struct {
		name   string
		chatID string
		sender string
		body   string
		want   error
	}{
		{"empty body", chatID, "u1", "", apperr.ErrInvalidInput},
		{"whitespace body", chatID, "u1", "  \n\t", apperr.ErrInvalidInput},
		{"unknown chat", "nope", "u1", "hi", apperr.ErrNotFound},
		{"outsider", chatID, "u9", "hi", apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Append(context.Background(), tt.chatID, tt.sender, tt.body)
			if !errors.Is(err, tt.want) {
				t.Errorf("Append() error = %v, want %v", err, tt.want)
			}
		})
	}

	msgs, err := l.History(context.Background(), chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("rejected appends stored %d messages", len(msgs))
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	l, engine, chatID := setup(t)

	delivered := make(chan struct{}, 8)
	h := l.Subscribe(chatID, func([]store.Message) { delivered <- struct{}{} }, nil)
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial snapshot")
	}

	l.Unsubscribe(h)
	l.Unsubscribe(h)
	l.Unsubscribe(nil)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
	if n := engine.Active(); n != 0 {
		t.Errorf("active = %d, want 0", n)
	}

	if _, err := l.Append(context.Background(), chatID, "u1", "after"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-delivered:
		t.Error("delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
