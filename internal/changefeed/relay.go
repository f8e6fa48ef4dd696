package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/config"
	"github.com/matheus3301/lcchat/internal/metrics"
	"go.uber.org/zap"
)

// Envelope is the wire form of a relayed change.
type Envelope struct {
	Origin string `json:"origin"`
	Kind   string `json:"kind"`
	At     int64  `json:"at"`
}

// Transport carries envelopes between processes.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe returns received payloads and a close function. The
	// subscription is active when Subscribe returns.
	Subscribe(ctx context.Context) (<-chan []byte, func() error, error)
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type redisTransport struct {
	client  *redis.Client
	channel string
}

// NewRedisTransport publishes and subscribes on one Redis channel.
func NewRedisTransport(client *redis.Client, channel string) Transport {
	return &redisTransport{client: client, channel: channel}
}

func (t *redisTransport) Publish(ctx context.Context, payload []byte) error {
	return t.client.Publish(ctx, t.channel, payload).Err()
}

func (t *redisTransport) Subscribe(ctx context.Context) (<-chan []byte, func() error, error) {
	ps := t.client.Subscribe(ctx, t.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}
	out := make(chan []byte, 256)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}

// Relay forwards local store events to a transport and republishes
// envelopes from other origins on the local bus.
type Relay struct {
	origin    string
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
	close  func() error
}

// NewRelay creates a relay identified by origin.
func NewRelay(origin string, t Transport, b *bus.Bus, logger *zap.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		origin:    origin,
		transport: t,
		bus:       b,
		logger:    logger,
		metrics:   m,
	}
}

// Origin returns the relay's process identity.
func (r *Relay) Origin() string {
	return r.origin
}

// Start subscribes to the transport and the local bus.
func (r *Relay) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	in, closeFn, err := r.transport.Subscribe(ctx)
	if err != nil {
		r.cancel()
		return err
	}
	r.close = closeFn
	local, unsub := r.bus.Subscribe("store.", 256)

	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		defer unsub()
		for {
			select {
			case evt := <-local:
				r.forward(ctx, evt)
			case payload, ok := <-in:
				if !ok {
					return
				}
				r.receive(payload)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends the relay.
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	if r.close != nil {
		_ = r.close()
	}
	<-r.done
}

func (r *Relay) forward(ctx context.Context, evt bus.Event) {
	// Only events raised here travel; relayed and polled ones stay local.
	if evt.Origin != "" {
		return
	}
	payload, err := json.Marshal(Envelope{Origin: r.origin, Kind: evt.Kind, At: evt.Timestamp.UnixMilli()})
	if err != nil {
		return
	}
	if err := r.transport.Publish(ctx, payload); err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("failed to relay change", zap.String("kind", evt.Kind), zap.Error(err))
		}
		return
	}
	r.metrics.Relayed("redis_out")
}

func (r *Relay) receive(payload []byte) {
	env, ok := r.Decode(payload)
	if !ok {
		return
	}
	r.bus.Publish(bus.Event{Kind: env.Kind, Timestamp: time.UnixMilli(env.At), Origin: env.Origin})
	r.metrics.Relayed("redis_in")
}

// Decode parses payload and reports whether it should be republished: it
// must be a store event from another origin.
func (r *Relay) Decode(payload []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.Debug("dropping malformed envelope", zap.Error(err))
		return env, false
	}
	if env.Origin == "" || env.Origin == r.origin {
		return env, false
	}
	if !strings.HasPrefix(env.Kind, "store.") {
		return env, false
	}
	return env, true
}
