// Package app wires one chat session: storage, crypto, REST, push, and the
// store, with the lifecycle that restores and tears them down.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatstore/internal/api"
	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/cipher"
	"github.com/matheus3301/chatstore/internal/config"
	"github.com/matheus3301/chatstore/internal/lock"
	"github.com/matheus3301/chatstore/internal/logging"
	"github.com/matheus3301/chatstore/internal/notify"
	"github.com/matheus3301/chatstore/internal/presence"
	"github.com/matheus3301/chatstore/internal/push"
	"github.com/matheus3301/chatstore/internal/realtime"
	"github.com/matheus3301/chatstore/internal/session"
	"github.com/matheus3301/chatstore/internal/snapshot"
	"github.com/matheus3301/chatstore/internal/status"
	"github.com/matheus3301/chatstore/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FlashTTL is how long the last toast stays readable.
const FlashTTL = 5 * time.Second

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	// ConfigPath overrides the global config file; empty = use default.
	ConfigPath string
	// Owner names the command holding the session lock.
	Owner string
	// Live subscribes to the push channel on start.
	Live     bool
	Quiet    bool
	LogLevel zapcore.Level
}

// Module returns the fx module for a session, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatstore",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStorage,
			provideCipher,
			snapshot.NewCodec,
			providePersister,
			provideAPI,
			providePush,
			providePresence,
			provideFlash,
			provideNotifier,
			provideStore,
			provideReconciler,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, logging.Options{
		Level: p.LogLevel,
		Quiet: p.Quiet,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

// provideLock takes the sealer so a missing key fails before the lock is
// taken.
func provideLock(p Params, _ snapshot.Sealer, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName), p.Owner)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStorage depends on the lock so the database is only opened by its
// holder.
func provideStorage(p Params, _ *lock.Lock, logger *zap.Logger) (*storage.DB, error) {
	dbPath := session.StoragePath(p.SessionName)
	db, result, err := storage.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("storage initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCipher(cfg *config.Config) (snapshot.Sealer, error) {
	c, err := cipher.New(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: set secret_key or %s", err, config.SecretKeyEnv)
	}
	return c, nil
}

func providePersister(codec *snapshot.Codec, db *storage.DB, logger *zap.Logger) *snapshot.Persister {
	return snapshot.NewPersister(codec, db, logger.Named("snapshot"))
}

func provideAPI(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.APIBaseURL,
		api.WithToken(cfg.AuthToken),
		api.WithLogger(logger.Named("api")),
	)
}

func providePush(cfg *config.Config, m *status.Machine, logger *zap.Logger) *push.Client {
	return push.NewClient(push.Config{
		URL:    cfg.PushURL,
		UserID: cfg.UserID,
		Token:  cfg.AuthToken,
	}, m, logger.Named("push"))
}

func providePresence(logger *zap.Logger) *presence.Tracker {
	return presence.NewTracker(logger.Named("presence"))
}

func provideFlash() *notify.Flash {
	return notify.NewFlash(FlashTTL)
}

func provideNotifier(b *bus.Bus, flash *notify.Flash) notify.Sink {
	return notify.Tee{notify.NewBusSink(b), flash}
}

func provideStore(cfg *config.Config, client *api.Client, persister *snapshot.Persister, notifier notify.Sink, tracker *presence.Tracker, b *bus.Bus, logger *zap.Logger) *chat.Store {
	return chat.NewStore(client, persister, notifier, logger.Named("store"),
		chat.WithPresence(tracker),
		chat.WithBus(b),
		chat.WithSelfID(cfg.UserID),
		chat.WithSnapshot(persister.Restore()),
	)
}

func provideReconciler(pc *push.Client, store *chat.Store, logger *zap.Logger) *realtime.Reconciler {
	return realtime.New(pc, store, logger.Named("realtime"))
}

func registerLifecycle(lc fx.Lifecycle, p Params, cfg *config.Config, lk *lock.Lock, db *storage.DB, persister *snapshot.Persister, pc *push.Client, tracker *presence.Tracker, rec *realtime.Reconciler, logger *zap.Logger) {
	// Hooks stop in reverse order: the push channel goes down before storage.
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cfg.ClearOnExit {
				if err := persister.Clear(); err != nil {
					logger.Warn("error clearing snapshot", zap.Error(err))
				}
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing storage", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("session stopped")
			_ = logger.Sync()
			return nil
		},
	})

	if !p.Live {
		return
	}
	var (
		token  push.Token
		detach func()
	)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			detach = tracker.Attach(pc)
			token = rec.Subscribe()
			if err := pc.Connect(ctx); err != nil {
				rec.Unsubscribe(token)
				detach()
				return fmt.Errorf("connect push channel: %w", err)
			}
			logger.Info("listening for pushed messages")
			return nil
		},
		OnStop: func(_ context.Context) error {
			rec.Unsubscribe(token)
			detach()
			if err := pc.Close(); err != nil {
				logger.Warn("error closing push channel", zap.Error(err))
			}
			return nil
		},
	})
}
