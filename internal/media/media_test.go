package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testStore(t *testing.T, maxBytes int64) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	db, err := store.Open(filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dir := filepath.Join(root, "media")
	s, err := New(db, bus.New(), Options{Dir: dir, PublicBaseURL: "http://127.0.0.1:7070/", MaxBytes: maxBytes}, retry.DefaultPolicy(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s, dir
}

func TestUploadThenOpen(t *testing.T) {
	s, _ := testStore(t, 0)
	ctx := context.Background()

	url, err := s.Upload(ctx, bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	const prefix = "http://127.0.0.1:7070/media/"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("url = %q, want prefix %q", url, prefix)
	}
	id := strings.TrimPrefix(url, prefix)

	rc, obj, err := s.Open(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()
	if obj.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", obj.ContentType)
	}
	if obj.Size != int64(len(pngHeader)) {
		t.Errorf("size = %d, want %d", obj.Size, len(pngHeader))
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pngHeader) {
		t.Error("content mismatch")
	}
}

func TestUploadRejects(t *testing.T) {
	s, dir := testStore(t, 16)

	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"too large", bytes.Repeat([]byte("x"), 17)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(context.Background(), bytes.NewReader(tt.body))
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("Upload() error = %v, want InvalidInput", err)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d files behind", len(entries))
	}
}

func TestUploadAtLimit(t *testing.T) {
	s, _ := testStore(t, 16)
	if _, err := s.Upload(context.Background(), bytes.NewReader(bytes.Repeat([]byte("x"), 16))); err != nil {
		t.Errorf("Upload() at limit error = %v", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	s, _ := testStore(t, 0)
	for _, id := range []string{"../etc/passwd", "4b0b2c1e-4a2f-4c6c-9d1e-2f9a8b7c6d5e"} {
		if _, _, err := s.Open(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Open(%q) error = %v, want NotFound", id, err)
		}
	}
}
