package daemon

import (
	"context"

	"github.com/google/uuid"
	"github.com/matheus3301/lcchat/internal/api"
	"github.com/matheus3301/lcchat/internal/app"
	"github.com/matheus3301/lcchat/internal/auth"
	"github.com/matheus3301/lcchat/internal/bus"
	"github.com/matheus3301/lcchat/internal/changefeed"
	"github.com/matheus3301/lcchat/internal/config"
	"github.com/matheus3301/lcchat/internal/contacts"
	"github.com/matheus3301/lcchat/internal/directory"
	"github.com/matheus3301/lcchat/internal/gateway"
	"github.com/matheus3301/lcchat/internal/live"
	"github.com/matheus3301/lcchat/internal/lock"
	"github.com/matheus3301/lcchat/internal/logging"
	"github.com/matheus3301/lcchat/internal/media"
	"github.com/matheus3301/lcchat/internal/messagelog"
	"github.com/matheus3301/lcchat/internal/metrics"
	"github.com/matheus3301/lcchat/internal/ratelimit"
	"github.com/matheus3301/lcchat/internal/resync"
	"github.com/matheus3301/lcchat/internal/retry"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/status"
	"github.com/matheus3301/lcchat/internal/statusfeed"
	"github.com/matheus3301/lcchat/internal/store"
	"github.com/matheus3301/lcchat/internal/sweeper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default

	// Config overrides the resolved global configuration when set.
	Config *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			metrics.New,
			bus.New,
			status.NewMachine,
			provideLock,
			provideStore,
			provideRetryPolicy,
			provideEngine,
			directory.New,
			provideContacts,
			messagelog.New,
			provideStatusFeed,
			provideMedia,
			provideAuth,
			provideApp,
			provideState,
			api.NewSessionService,
			api.NewChatService,
			api.NewStatusService,
			NewServer,
			provideGateway,
			provideSweeper,
			providePoller,
			provideRelay,
			resync.NewEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Resolve(session.ConfigPath(), session.EnvPath()); err != nil {
			return nil, err
		}
	}
	if cfg.StorePath == "" {
		cfg.StorePath = session.StorePath()
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = session.MediaDir()
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName), p.SessionName)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the store is only opened by the daemon
// that owns the session.
func provideStore(cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", cfg.StorePath))
	return db, nil
}

func provideRetryPolicy(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		Timeout:         cfg.OpTimeout,
		Transient:       store.IsTransient,
		Logger:          logger,
		Metrics:         m,
	}
}

func provideEngine(b *bus.Bus, logger *zap.Logger, m *metrics.Metrics) *live.Engine {
	return live.NewEngine(b, logger, m)
}

func provideContacts(db *store.DB, dir *directory.Directory, e *live.Engine, b *bus.Bus, policy retry.Policy, logger *zap.Logger) *contacts.Graph {
	return contacts.New(db, dir, e, b, policy, logger)
}

func provideStatusFeed(db *store.DB, g *contacts.Graph, e *live.Engine, b *bus.Bus, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) *statusfeed.Store {
	return statusfeed.New(db, g, e, b, policy, logger, m)
}

func provideMedia(db *store.DB, b *bus.Bus, cfg *config.Config, policy retry.Policy, logger *zap.Logger, m *metrics.Metrics) (*media.Store, error) {
	return media.New(db, b, media.Options{
		Dir:           cfg.MediaDir,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxBytes:      cfg.Media.MaxBytes,
	}, policy, logger, m)
}

// provideAuth uses the configured secret, or the one shared through the
// backing store so tokens from any daemon verify on every other.
func provideAuth(p Params, cfg *config.Config, db *store.DB, policy retry.Policy, logger *zap.Logger) (*auth.Provider, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
		defer cancel()
		var err error
		if secret, err = auth.SharedSecret(ctx, db); err != nil {
			return nil, err
		}
	}
	return auth.New(db, auth.Options{Session: p.SessionName, Secret: secret}, policy, logger), nil
}

type appDeps struct {
	fx.In

	Auth      *auth.Provider
	Directory *directory.Directory
	Contacts  *contacts.Graph
	Messages  *messagelog.Log
	Statuses  *statusfeed.Store
	Media     *media.Store
	Machine   *status.Machine
	Config    *config.Config
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func provideApp(d appDeps) *app.App {
	return app.New(app.Deps{
		Auth:      d.Auth,
		Directory: d.Directory,
		Contacts:  d.Contacts,
		Messages:  d.Messages,
		Statuses:  d.Statuses,
		Media:     d.Media,
		Machine:   d.Machine,
		SendLimit: ratelimit.New(d.Config.RateLimit.SendPerSecond, d.Config.RateLimit.SendBurst, 0),
		Metrics:   d.Metrics,
		Logger:    d.Logger,
	})
}

func provideState(p Params) *session.State {
	return session.NewState(p.SessionName)
}

func provideGateway(a *app.App, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *gateway.Server {
	connects := ratelimit.New(cfg.RateLimit.WSConnectPerSecond, cfg.RateLimit.WSConnectBurst, 0)
	return gateway.New(a, m, connects, logger)
}

func provideSweeper(s *statusfeed.Store, cfg *config.Config, logger *zap.Logger) *sweeper.Sweeper {
	return sweeper.New(s, cfg.SweepInterval, logger)
}

func providePoller(db *store.DB, b *bus.Bus, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *changefeed.Poller {
	return changefeed.NewPoller(db, b, cfg.PollInterval, logger, m)
}

// provideRelay returns nil when no Redis address is configured. The client
// is closed after the relay stops.
func provideRelay(lc fx.Lifecycle, cfg *config.Config, b *bus.Bus, logger *zap.Logger, m *metrics.Metrics) (*changefeed.Relay, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	defer cancel()
	client, err := changefeed.Dial(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	origin := uuid.NewString()
	logger.Info("change relay enabled", zap.String("redis", cfg.Redis.Addr), zap.String("origin", origin))
	return changefeed.NewRelay(origin, changefeed.NewRedisTransport(client, cfg.Redis.Channel), b, logger, m), nil
}

type lifecycleDeps struct {
	fx.In

	Config  *config.Config
	Server  *Server
	Gateway *gateway.Server
	Lock    *lock.Lock
	DB      *store.DB
	Engine  *live.Engine
	App     *app.App
	State   *session.State
	Sweeper *sweeper.Sweeper
	Poller  *changefeed.Poller
	Relay   *changefeed.Relay
	Resync  *resync.Engine
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := d.Logger

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			// Change detection first so nothing written after start is missed.
			if err := d.Poller.Start(ctx); err != nil {
				logger.Warn("change poller disabled", zap.Error(err))
			}
			if d.Relay != nil {
				if err := d.Relay.Start(ctx); err != nil {
					return err
				}
			}

			go func() {
				if err := d.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if _, found, err := d.App.Restore(startCtx, d.State); err != nil {
				logger.Error("restore sign-in failed", zap.Error(err))
			} else if !found {
				logger.Info("no signed-in user, sign-in required")
			}

			d.Sweeper.Start(ctx)
			if d.Config.ResyncRefs {
				d.Resync.Start(ctx)
			}

			// Several daemons can share one host; only the first owns the port.
			if d.Config.HTTPAddr != "" {
				if err := d.Gateway.Start(d.Config.HTTPAddr); err != nil {
					logger.Warn("http gateway disabled", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			if err := d.Gateway.Stop(stopCtx); err != nil {
				logger.Warn("error stopping http gateway", zap.Error(err))
			}
			d.Server.Stop(stopCtx)
			d.App.Detach(d.State)
			d.Resync.Stop()
			d.Sweeper.Stop()
			if d.Relay != nil {
				d.Relay.Stop()
			}
			d.Poller.Stop()
			cancel()
			d.Engine.Close()
			if err := d.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
