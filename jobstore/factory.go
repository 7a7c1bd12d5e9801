package jobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/config"
	"github.com/BaSui01/anythingworld/internal/database"
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	recorder    OpRecorder
	poolOptions []database.PoolOption
}

// WithOpRecorder instruments the opened store.
func WithOpRecorder(rec OpRecorder) Option {
	return func(o *openOptions) { o.recorder = rec }
}

// WithPoolOptions forwards options to the SQL connection pool.
func WithPoolOptions(opts ...database.PoolOption) Option {
	return func(o *openOptions) { o.poolOptions = append(o.poolOptions, opts...) }
}

// Open creates the store selected by cfg.Store.Backend. The "none" backend
// returns a nil Store and a nil error; callers treat that as "no recording".
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		store Store
		err   error
	)
	backend := cfg.Store.Backend
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		store = NewMemoryStore()
	case BackendRedis:
		store, err = openRedis(ctx, cfg)
	case BackendSQL:
		store, err = openSQL(ctx, cfg, logger, o.poolOptions)
	default:
		return nil, fmt.Errorf("unsupported job store backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("job store opened", zap.String("backend", backend))
	return Instrument(store, backend, o.recorder), nil
}

// MustOpen creates a Store or panics on error. Only for program initialization.
func MustOpen(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) Store {
	store, err := Open(ctx, cfg, logger, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to open job store: %v", err))
	}
	return store
}

func openRedis(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, cfg.Store.KeyPrefix, cfg.Store.TTL), nil
}

func openSQL(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts []database.PoolOption) (*SQLStore, error) {
	pool, err := database.Open(cfg.Database, logger, opts...)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(ctx, pool)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	return store, nil
}
