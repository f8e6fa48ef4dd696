// Package live turns bus change notifications into ordered snapshot
// deliveries for registered queries.
package live

import (
	"context"
	"reflect"
	"sync"

	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/metrics"
	"go.uber.org/zap"
)

// Query describes what to watch. Subjects are bus namespaces whose events
// invalidate the result; Fetch reads the current result. Equal decides whether
// a refetched snapshot differs from the last delivered one and defaults to
// reflect.DeepEqual.
type Query[T any] struct {
	Name     string
	Subjects []string
	Fetch    func(ctx context.Context) (T, error)
	Equal    func(a, b T) bool
}

// Engine owns every live subscription of a process.
type Engine struct {
	bus     *bus.Bus
	logger  *zap.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[uint64]*Handle
	next   uint64
	closed bool
}

// NewEngine creates an engine that listens for changes on b.
func NewEngine(b *bus.Bus, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		bus:     b,
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[uint64]*Handle),
	}
}

// Active returns the number of registered handles, composite ones included.
func (e *Engine) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Close cancels every subscription and waits for their goroutines to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

// Watch registers q. onSnapshot receives the first successful fetch and then
// every changed snapshot, one at a time and in order. onError receives fetch
// failures; the subscription stays active after an error.
func Watch[T any](e *Engine, q Query[T], onSnapshot func(T), onError func(error)) *Handle {
	return watch(e, e.ctx, q, onSnapshot, onError)
}

func watch[T any](e *Engine, parent context.Context, q Query[T], onSnapshot func(T), onError func(error)) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h, ok := e.register(ctx, cancel, q.Name)
	if !ok {
		return h
	}

	equal := q.Equal
	if equal == nil {
		equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}

	// Subscribe before the first fetch so a change landing in between is not lost.
	changes, unsub := e.bus.SubscribeAny(q.Subjects, 1)

	go func() {
		defer e.release(h)
		defer unsub()

		var (
			last      T
			delivered bool
		)
		refresh := func() {
			snap, err := q.Fetch(ctx)
			if ctx.Err() != nil {
				if err == nil {
					e.metrics.LateSnapshotDropped(q.Name)
				}
				return
			}
			if err != nil {
				e.metrics.FetchFailed(q.Name)
				e.logger.Warn("live fetch failed", zap.String("query", q.Name), zap.Error(err))
				if onError != nil {
					onError(err)
				}
				return
			}
			if delivered && equal(last, snap) {
				return
			}
			last, delivered = snap, true
			e.metrics.Delivered(q.Name)
			onSnapshot(snap)
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				refresh()
			}
		}
	}()
	return h
}

func (e *Engine) register(ctx context.Context, cancel context.CancelFunc, name string) (*Handle, bool) {
	h := &Handle{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		cancel()
		close(h.done)
		return h, false
	}
	e.next++
	h.id = e.next
	e.active[h.id] = h
	e.wg.Add(1)
	e.metrics.SubscriptionOpened()
	return h, true
}

func (e *Engine) release(h *Handle) {
	h.cancel()
	e.mu.Lock()
	delete(e.active, h.id)
	e.mu.Unlock()
	e.metrics.SubscriptionClosed()
	close(h.done)
	e.wg.Done()
}
