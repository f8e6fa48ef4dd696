// Package sweeper removes status posts that have aged out of the feed window.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer deletes posts older than the window ending at now.
type Expirer interface {
	Expire(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs Expire on a fixed interval.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a sweeper. A non-positive interval defaults to five minutes.
func New(e Expirer, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		expirer:  e,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs one sweep immediately and then one per interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs a single expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.expirer.Expire(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to expire statuses", zap.Error(err))
		}
		return 0
	}
	if n > 0 {
		s.logger.Info("expired statuses", zap.Int64("count", n))
	}
	return n
}
