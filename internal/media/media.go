// Package media stores uploaded blobs on disk and indexes them in the
// backing store. Uploads return durable URLs served by the HTTP gateway.
package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/lcchat/internal/apperr"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes int64 = 10 << 20

// Options configures a Store.
type Options struct {
	Dir           string
	PublicBaseURL string
	MaxBytes      int64
}

// Store is the file-backed media store.
type Store struct {
	db      *store.DB
	bus     *bus.Bus
	opts    Options
	retry   retry.Policy
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a media store rooted at opts.Dir.
func New(db *store.DB, b *bus.Bus, opts Options, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("media dir is required")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, bus: b, opts: opts, retry: policy, logger: logger, metrics: m}, nil
}

// Upload stores r and returns its public URL.
func (s *Store) Upload(ctx context.Context, r io.Reader) (string, error) {
	const op = "media.upload"
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", apperr.Wrap(apperr.InvalidInput, op, err)
	}
	if len(head) == 0 {
		return "", apperr.New(apperr.InvalidInput, op, "media is empty")
	}
	contentType := http.DetectContentType(head)

	id := uuid.NewString()
	final := s.path(id)
	tmp, err := os.CreateTemp(s.opts.Dir, ".upload-*")
	if err != nil {
		return "", apperr.Store(op, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, io.LimitReader(br, s.opts.MaxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", apperr.Store(op, err)
	}
	if n > s.opts.MaxBytes {
		return "", apperr.Newf(apperr.InvalidInput, op, "media exceeds %d bytes", s.opts.MaxBytes)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", apperr.Store(op, err)
	}

	obj := store.MediaObject{ID: id, ContentType: contentType, Size: n, CreatedAt: time.Now().UnixMilli()}
	if err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.db.InsertMedia(ctx, &obj)
	}); err != nil {
		_ = os.Remove(final)
		return "", apperr.Store(op, err)
	}

	s.metrics.MediaUploaded(n)
	s.logger.Info("media uploaded",
		zap.String("media_id", id),
		zap.String("content_type", contentType),
		zap.Int64("size", n),
	)
	s.bus.Notify(bus.KindMedia)
	return s.URL(id), nil
}

// URL returns the public URL of id.
func (s *Store) URL(id string) string {
	return s.opts.PublicBaseURL + "/media/" + id
}

// Open returns the content of id. The caller closes the reader.
func (s *Store) Open(ctx context.Context, id string) (io.ReadCloser, store.MediaObject, error) {
	const op = "media.open"
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.MediaObject{}, apperr.New(apperr.NotFound, op, "media not found")
	}
	obj, err := retry.Value(ctx, s.retry, op, func(ctx context.Context) (*store.MediaObject, error) {
		return s.db.GetMedia(ctx, id)
	})
	if err != nil {
		return nil, store.MediaObject{}, apperr.Store(op, err)
	}
	if obj == nil {
		return nil, store.MediaObject{}, apperr.New(apperr.NotFound, op, "media not found")
	}
	f, err := os.Open(s.path(id))
	if os.IsNotExist(err) {
		return nil, store.MediaObject{}, apperr.New(apperr.NotFound, op, "media not found")
	}
	if err != nil {
		return nil, store.MediaObject{}, apperr.Store(op, err)
	}
	return f, *obj, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.opts.Dir, id)
}
