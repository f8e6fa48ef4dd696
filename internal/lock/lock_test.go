package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "main", "LOCK")

	l, err := Acquire(path, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	info := parse(string(data))
	if info.Session != "main" || info.PID != os.Getpid() || info.Since.IsZero() {
		t.Errorf("lock info = %+v", info)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file left behind after Release")
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l1, err := Acquire(path, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(path, "main")
	if err == nil {
		t.Fatal("second Acquire() should fail")
	}

	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockHeldError, got %T: %v", err, err)
	}
	if lockErr.PID != os.Getpid() || lockErr.Session != "main" {
		t.Errorf("LockHeldError = %+v", lockErr)
	}
}

func TestHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	if _, ok, err := Holder(path); err != nil || ok {
		t.Fatalf("Holder(missing) = %v, %v", ok, err)
	}

	l, err := Acquire(path, "work")
	if err != nil {
		t.Fatal(err)
	}
	info, ok, err := Holder(path)
	if err != nil || !ok {
		t.Fatalf("Holder(held) = %v, %v", ok, err)
	}
	if info.Session != "work" || info.PID != os.Getpid() {
		t.Errorf("info = %+v", info)
	}
	_ = l.Release()

	// A stale file without a flock holder is not a running daemon.
	if err := os.WriteFile(path, []byte("session=work\npid=1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := Holder(path); err != nil || ok {
		t.Errorf("Holder(stale) = %v, %v", ok, err)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(filepath.Join(t.TempDir(), "LOCK"), "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}
