package contacts

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
)

type fixture struct {
	db     *store.DB
	dir    *directory.Directory
	engine *live.Engine
	graph  *Graph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	policy := retry.DefaultPolicy()
	policy.Transient = store.IsTransient
	b := bus.New()
	engine := live.NewEngine(b, nil, nil)
	t.Cleanup(engine.Close)

	dir := directory.New(db, b, policy, nil)
	return &fixture{db: db, dir: dir, engine: engine, graph: New(db, dir, engine, b, policy, nil)}
}

func (f *fixture) user(t *testing.T, id, name, number string) store.User {
	t.Helper()
	u, err := f.dir.Upsert(context.Background(), id, directory.Patch{Name: &name, Number: &number})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCreateThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1", "Ann", "5551112222")
	f.user(t, "u2", "Bob", "5553334444")

	c, err := f.graph.Create(ctx, u1, "5553334444")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ChatID == "" || c.User1.UserID != "u1" || c.User2.UserID != "u2" {
		t.Errorf("chat = %+v", c)
	}
	if c.User2.Name != "Bob" {
		t.Errorf("partner snapshot name = %q, want Bob", c.User2.Name)
	}

	_, err = f.graph.Create(ctx, u1, "5553334444")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("repeat Create() error = %v, want AlreadyExists", err)
	}
}

func TestCreateReverseDirectionIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1", "Ann", "5551112222")
	u2 := f.user(t, "u2", "Bob", "5553334444")

	if _, err := f.graph.Create(ctx, u1, u2.Number); err != nil {
		t.Fatal(err)
	}
	_, err := f.graph.Create(ctx, u2, u1.Number)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("reverse Create() error = %v, want AlreadyExists", err)
	}
}

func TestCreateConcurrentAtMostOnce(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "u1", "Ann", "5551112222")
	u2 := f.user(t, "u2", "Bob", "5553334444")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 6)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = f.graph.Create(context.Background(), u1, u2.Number)
			} else {
				_, errs[i] = f.graph.Create(context.Background(), u2, u1.Number)
			}
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrAlreadyExists):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d creates succeeded, want exactly 1", ok)
	}
	n, err := f.db.ChatCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("chat count = %d, want 1", n)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "u1", "Ann", "5551112222")
	noNumber := f.user(t, "u3", "Cid", "")

	tests := []struct {
		name   string
		self   store.User
		target string
		want   error
	}{
		{"empty target", u1, "", apperr.ErrInvalidInput},
		{"letters", u1, "abc", apperr.ErrInvalidInput},
		{"mixed", u1, "555abc", apperr.ErrInvalidInput},
		{"own number", u1, "5551112222", apperr.ErrInvalidInput},
		{"caller without number", noNumber, "5551112222", apperr.ErrInvalidInput},
		{"unknown target", u1, "5559990000", apperr.ErrTargetNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.graph.Create(context.Background(), tt.self, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create(%q) error = %v, want %v", tt.target, err, tt.want)
			}
		})
	}
}

func TestCreateInvalidInputLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "u1", "Ann", "5551112222")

	// A closed store fails every query, so reaching it would surface as a
	// backing store error instead of InvalidInput.
	if err := f.db.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := f.graph.Create(context.Background(), u1, "abc")
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("Create(abc) error = %v, want InvalidInput", err)
	}
	if errors.Is(err, apperr.ErrBackingStore) {
		t.Error("validation reached the backing store")
	}
}

func TestFindIsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1", "Ann", "5551112222")
	f.user(t, "u2", "Bob", "5553334444")

	if c, err := f.graph.Find(ctx, "5551112222", "5553334444"); err != nil || c != nil {
		t.Fatalf("Find before create = %v, %v", c, err)
	}
	created, err := f.graph.Create(ctx, u1, "5553334444")
	if err != nil {
		t.Fatal(err)
	}

	ab, err := f.graph.Find(ctx, "5551112222", "5553334444")
	if err != nil {
		t.Fatal(err)
	}
	ba, err := f.graph.Find(ctx, "5553334444", "5551112222")
	if err != nil {
		t.Fatal(err)
	}
	if ab == nil || ba == nil || *ab != *ba || ab.ChatID != created.ChatID {
		t.Errorf("Find(A,B) = %+v, Find(B,A) = %+v", ab, ba)
	}
}

func TestGetUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.graph.Get(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get() error = %v, want NotFound", err)
	}
}

func TestNeighbors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1", "Ann", "5551112222")
	f.user(t, "u2", "Bob", "5553334444")
	u3 := f.user(t, "u3", "Cid", "5555556666")

	got, err := f.graph.Neighbors(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "u1" {
		t.Errorf("Neighbors without chats = %v, want [u1]", got)
	}

	if _, err := f.graph.Create(ctx, u1, "5553334444"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.graph.Create(ctx, u3, "5551112222"); err != nil {
		t.Fatal(err)
	}
	got, err = f.graph.Neighbors(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"u1", "u2", "u3"}
	if len(got) != len(want) {
		t.Fatalf("Neighbors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Neighbors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatchDeliversInitialAndChanges(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "u1", "Ann", "5551112222")
	f.user(t, "u2", "Bob", "5553334444")

	snaps := make(chan []store.Chat, 4)
	h := f.graph.Watch("u2", func(c []store.Chat) { snaps <- c }, func(err error) { t.Errorf("watch error: %v", err) })
	defer live.Stop(h)

	select {
	case got := <-snaps:
		if len(got) != 0 {
			t.Errorf("initial snapshot = %v, want empty", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial snapshot")
	}

	if _, err := f.graph.Create(context.Background(), u1, "5553334444"); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-snaps:
		if len(got) != 1 || got[0].User1.UserID != "u1" {
			t.Errorf("snapshot after create = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot after create")
	}
}
