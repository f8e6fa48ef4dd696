package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
	hit   chan struct{}
}

func (f *fakeExpirer) Expire(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	f.mu.Unlock()
	if f.hit != nil {
		select {
		case f.hit <- struct{}{}:
		default:
		}
	}
	return f.n, f.err
}

func TestSweepPassesClock(t *testing.T) {
	f := &fakeExpirer{n: 3}
	s := New(f, time.Hour, nil)
	at := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return at }

	if got := s.Sweep(context.Background()); got != 3 {
		t.Errorf("Sweep() = %d, want 3", got)
	}
	if len(f.calls) != 1 || !f.calls[0].Equal(at) {
		t.Errorf("calls = %v", f.calls)
	}
}

func TestSweepSwallowsErrors(t *testing.T) {
	f := &fakeExpirer{n: 7, err: errors.New("database is locked")}
	s := New(f, time.Hour, nil)
	if got := s.Sweep(context.Background()); got != 0 {
		t.Errorf("Sweep() = %d, want 0 on error", got)
	}
}

func TestStartSweepsImmediatelyAndOnTick(t *testing.T) {
	f := &fakeExpirer{hit: make(chan struct{}, 1)}
	s := New(f, 20*time.Millisecond, nil)
	s.Start(context.Background())

	for i := range 3 {
		select {
		case <-f.hit:
		case <-time.After(2 * time.Second):
			t.Fatalf("sweep %d did not run", i)
		}
	}
	s.Stop()

	f.mu.Lock()
	n := len(f.calls)
	f.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) != n {
		t.Errorf("sweeps continued after Stop: %d -> %d", n, len(f.calls))
	}
}

func TestDefaultInterval(t *testing.T) {
	s := New(&fakeExpirer{}, 0, nil)
	if s.interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", s.interval)
	}
	// Stop before Start is a no-op.
	s.Stop()
}
