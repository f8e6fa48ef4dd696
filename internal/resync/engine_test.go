package resync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()
	chat := store.Chat{
		ChatID:    "c1",
		User1:     store.UserRef{UserID: "u1", Name: "Ann", Number: "5551112222"},
		User2:     store.UserRef{UserID: "u2", Name: "Bob", Number: "5553334444"},
		CreatedAt: 1,
	}
	if err := db.InsertChat(ctx, &chat); err != nil {
		t.Fatal(err)
	}
	post := store.StatusPost{ID: "s1", Author: chat.User2, MediaURL: "http://m/1", PostedAt: 1}
	if err := db.InsertStatus(ctx, &post); err != nil {
		t.Fatal(err)
	}
}

func TestRewrite(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	b := bus.New()
	e := NewEngine(db, b, retry.DefaultPolicy(), nil)

	ch, unsub := b.Subscribe("store.", 10)
	defer unsub()

	ref := store.UserRef{UserID: "u2", Name: "Robert", ImageURL: "http://m/pic", Number: "5553334444"}
	chats, posts, err := e.Rewrite(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if chats != 1 || posts != 1 {
		t.Errorf("rewrote %d chats, %d posts; want 1, 1", chats, posts)
	}

	c, err := db.GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.User2 != ref {
		t.Errorf("chat ref = %+v, want %+v", c.User2, ref)
	}
	if c.User1.Name != "Ann" {
		t.Errorf("other participant changed: %+v", c.User1)
	}

	kinds := map[string]bool{}
	for range 2 {
		select {
		case evt := <-ch:
			kinds[evt.Kind] = true
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for change notifications")
		}
	}
	if !kinds[bus.KindChats] || !kinds[bus.KindStatuses] {
		t.Errorf("notified %v", kinds)
	}

	// Same ref again changes nothing.
	chats, posts, err = e.Rewrite(context.Background(), ref)
	if err != nil || chats != 0 || posts != 0 {
		t.Errorf("second Rewrite = %d, %d, %v", chats, posts, err)
	}
}

func TestEngineFollowsIdentityEvents(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	b := bus.New()
	e := NewEngine(db, b, retry.DefaultPolicy(), nil)
	e.Start(context.Background())
	defer e.Stop()

	ch, unsub := b.Subscribe(bus.KindChats, 1)
	defer unsub()

	b.Publish(bus.Event{Kind: bus.KindIdentity, Payload: store.User{UserID: "u1", Name: "Annie", Number: "5551112222"}})

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no chat change after identity update")
	}
	c, err := db.GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.User1.Name != "Annie" {
		t.Errorf("user1 name = %q, want Annie", c.User1.Name)
	}
}
