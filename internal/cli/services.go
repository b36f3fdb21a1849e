package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/internal/config"
	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/pkg/adapters/memory"
	"github.com/aretw0/tally/pkg/adapters/redis"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/observability"
	"github.com/aretw0/tally/pkg/persistence/middleware"
	"github.com/aretw0/tally/pkg/ports"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/aretw0/tally/pkg/session"
)

// ErrNoSharedStore is returned when a command needs redis.url but none is configured.
var ErrNoSharedStore = errors.New("no shared store configured (set redis.url or TALLY_REDIS_URL)")

// ServiceOptions tunes NewServices for a particular command.
type ServiceOptions struct {
	Debug bool
	// RequireRedis fails instead of falling back to the in-memory store.
	RequireRedis bool
	// LogWriter defaults to os.Stderr.
	LogWriter io.Writer
}

// Services is everything a command needs, wired from the configuration.
type Services struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Store   ports.StateStore
	Manager *session.Manager
	Engine  *tally.Engine

	redis *redis.Store
}

// NewServices builds the logger, metrics, store, session manager and engine.
func NewServices(cfg config.Config, opts ServiceOptions) (*Services, error) {
	runner.DefaultMaxInputSize = cfg.Input.MaxSize

	s := &Services{
		Config: cfg,
		Logger: createLogger(cfg, opts),
	}

	var hooks []domain.LifecycleHooks
	if opts.Debug {
		hooks = append(hooks, observability.LoggingHooks(s.Logger))
	}
	if cfg.Server.Metrics {
		s.Metrics = observability.NewMetrics(true)
		hooks = append(hooks, s.Metrics.Hooks())
	}

	s.Engine = tally.New(
		tally.WithLogger(s.Logger),
		tally.WithHistoryCapacity(cfg.History.Capacity),
		tally.WithLifecycleHooks(observability.Combine(hooks...)),
	)

	managerOpts := []session.Option{
		session.WithLogger(s.Logger),
		session.WithLockTTL(cfg.Session.LockTTL),
	}
	switch {
	case cfg.Redis.URL != "":
		store, err := redis.NewFromURL(cfg.Redis.URL,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = store
		s.Store = store
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = store.Ping(pingCtx)
		cancel()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		managerOpts = append(managerOpts, session.WithLocker(redis.NewLocker(store.Client(), store.Prefix())))
		s.Logger.Debug("using redis session store", "prefix", store.Prefix())
	case opts.RequireRedis:
		return nil, ErrNoSharedStore
	default:
		s.Store = memory.NewStore()
	}

	if err := s.sealStore(); err != nil {
		s.Close()
		return nil, err
	}

	s.Manager = session.NewManager(s.Store, managerOpts...)
	return s, nil
}

// sealStore encrypts sessions at rest when session.encryption_key is set.
func (s *Services) sealStore() error {
	active, previous, err := s.Config.EncryptionKeys()
	if err != nil || active == nil {
		return err
	}
	seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: previous,
	})
	if err != nil {
		return fmt.Errorf("session encryption: %w", err)
	}
	s.Store = middleware.Chain(s.Store, seal)
	s.Logger.Debug("session encryption enabled", "previous_keys", len(previous))
	return nil
}

// Shared reports whether sessions outlive the process.
func (s *Services) Shared() bool {
	return s.redis != nil
}

// Close releases the store connection.
func (s *Services) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func createLogger(cfg config.Config, opts ServiceOptions) *slog.Logger {
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	level := cfg.LogLevel()
	if opts.Debug {
		level = slog.LevelDebug
	}
	return logging.NewWithFormat(w, cfg.LogFormat(), level)
}
