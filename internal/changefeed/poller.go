// Package changefeed turns commits made by other processes into local bus
// notifications, either by polling the shared SQLite file or by relaying
// events through Redis.
package changefeed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/store"
	"go.uber.org/zap"
)

// OriginPoller marks events raised by the poller. The relay never forwards
// them, since every daemon runs its own poller.
const OriginPoller = "poller"

// Poller watches PRAGMA data_version on a dedicated connection and publishes
// the store subjects whose watermarks moved.
type Poller struct {
	db       *store.DB
	bus      *bus.Bus
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	conn    *sql.Conn
	version int64
	marks   store.Watermarks

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. A non-positive interval defaults to 250ms.
func NewPoller(db *store.DB, b *bus.Bus, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		db:       db,
		bus:      b,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Open pins the dedicated connection and records the starting watermarks.
func (p *Poller) Open(ctx context.Context) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("changefeed conn: %w", err)
	}
	v, err := store.DataVersion(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("read data_version: %w", err)
	}
	marks, err := store.ReadWatermarks(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("read watermarks: %w", err)
	}
	p.conn, p.version, p.marks = conn, v, marks
	return nil
}

// Start opens the poller and runs it until Stop.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.Open(ctx); err != nil {
		return err
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
	return nil
}

// Stop ends the loop and releases the connection.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("change poll failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Poll checks once for foreign commits and returns the subjects it published.
func (p *Poller) Poll(ctx context.Context) ([]string, error) {
	if p.conn == nil {
		return nil, fmt.Errorf("poller not open")
	}
	v, err := store.DataVersion(ctx, p.conn)
	if err != nil {
		return nil, err
	}
	if v == p.version {
		return nil, nil
	}
	marks, err := store.ReadWatermarks(ctx, p.conn)
	if err != nil {
		return nil, err
	}

	kinds := Diff(p.marks, marks)
	if marks.MessageSeq > p.marks.MessageSeq {
		chats, err := store.ChatsWithMessagesAfter(ctx, p.conn, p.marks.MessageSeq)
		if err != nil {
			return nil, err
		}
		for _, id := range chats {
			kinds = append(kinds, bus.MessagesSubject(id))
		}
	}
	p.version, p.marks = v, marks

	for _, kind := range kinds {
		p.bus.Publish(bus.Event{Kind: kind, Origin: OriginPoller})
		p.metrics.Relayed("poller")
	}
	if len(kinds) > 0 {
		p.logger.Debug("foreign commit detected", zap.Strings("kinds", kinds))
	}
	return kinds, nil
}

// Diff returns the collection subjects whose watermarks differ. Message
// subjects are per chat and are resolved by the caller.
func Diff(prev, cur store.Watermarks) []string {
	var kinds []string
	usersMoved := prev.UserCount != cur.UserCount || prev.UserUpdated != cur.UserUpdated
	if usersMoved {
		kinds = append(kinds, bus.KindUsers)
	}
	// Profile changes may have rewritten the snapshots embedded in chats
	// and posts, which leaves their counts untouched.
	if prev.ChatCount != cur.ChatCount || usersMoved {
		kinds = append(kinds, bus.KindChats)
	}
	if prev.StatusSeq != cur.StatusSeq || prev.StatusCount != cur.StatusCount || usersMoved {
		kinds = append(kinds, bus.KindStatuses)
	}
	if prev.MediaSeq != cur.MediaSeq {
		kinds = append(kinds, bus.KindMedia)
	}
	return kinds
}
