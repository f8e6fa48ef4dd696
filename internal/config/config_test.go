package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.OpTimeout = 3 * time.Second
	cfg.Redis.Addr = "127.0.0.1:6379"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.OpTimeout != 3*time.Second {
		t.Errorf("OpTimeout = %v, want 3s", loaded.OpTimeout)
	}
	if loaded.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("Redis.Addr = %q", loaded.Redis.Addr)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestResolveDefaultsWithoutFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Resolve(filepath.Join(dir, "config.toml"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.OpTimeout != 5*time.Second || cfg.SweepInterval != 5*time.Minute {
		t.Errorf("timeouts = %v / %v", cfg.OpTimeout, cfg.SweepInterval)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("Retry.MaxAttempts = %d, want 4", cfg.Retry.MaxAttempts)
	}
	if cfg.ResyncRefs {
		t.Error("ResyncRefs should default to false")
	}
	if cfg.PublicBaseURL != "http://127.0.0.1:7070" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	envPath := filepath.Join(dir, ".env")

	toml := "default_session = \"file\"\nop_timeout = \"2s\"\nhttp_addr = \"127.0.0.1:9000\"\n\n[retry]\nmax_attempts = 7\n"
	if err := os.WriteFile(path, []byte(toml), 0600); err != nil {
		t.Fatal(err)
	}
	env := "LCCHAT_DEFAULT_SESSION=dotenv\nLCCHAT_RESYNC_REFS=true\nLCCHAT_SWEEP_INTERVAL=1m\n"
	if err := os.WriteFile(envPath, []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LCCHAT_DEFAULT_SESSION", "environ")
	t.Setenv("LCCHAT_RESYNC_REFS", "")
	_ = os.Unsetenv("LCCHAT_RESYNC_REFS")
	t.Setenv("LCCHAT_SWEEP_INTERVAL", "")
	_ = os.Unsetenv("LCCHAT_SWEEP_INTERVAL")

	cfg, err := Resolve(path, envPath)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.DefaultSession != "environ" {
		t.Errorf("DefaultSession = %q, want environment to win", cfg.DefaultSession)
	}
	if !cfg.ResyncRefs {
		t.Error("ResyncRefs should come from .env")
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", cfg.SweepInterval)
	}
	if cfg.OpTimeout != 2*time.Second {
		t.Errorf("OpTimeout = %v, want 2s from file", cfg.OpTimeout)
	}
	if cfg.Retry.MaxAttempts != 7 || cfg.Retry.MaxInterval != 2*time.Second {
		t.Errorf("Retry = %+v, want file value merged over defaults", cfg.Retry)
	}
	if cfg.PublicBaseURL != "http://127.0.0.1:9000" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
}

func TestResolveRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LCCHAT_OP_TIMEOUT", "soon")
	if _, err := Resolve(filepath.Join(dir, "config.toml"), ""); err == nil {
		t.Error("expected error for malformed LCCHAT_OP_TIMEOUT")
	}
}
