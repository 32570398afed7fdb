package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"trafficportal/internal/config"
	"trafficportal/internal/database"
	"trafficportal/internal/kv"
)

// ErrProcessLocalStore is returned for a backend other processes cannot see.
var ErrProcessLocalStore = errors.New("store backend is local to this process")

// RequireSharedStore rejects the memory backend for processes that must read
// the state another process writes.
func RequireSharedStore(cfg config.StoreConfig) error {
	switch cfg.Backend {
	case "memory", "":
		return fmt.Errorf("%w: set store.backend to redis, postgres or file", ErrProcessLocalStore)
	}
	return nil
}

// Backend is an opened storage backend plus the connections behind it.
type Backend struct {
	Store kv.Store
	Redis *redis.Client
	DB    *pgxpool.Pool
}

func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
}

// OpenBackend connects the configured storage backend. A redis client is
// opened for the redis backend and whenever withRedis is set, since the
// event relay and task stream need it regardless of where state lives.
func OpenBackend(ctx context.Context, cfg *config.AppConfig, withRedis bool) (*Backend, error) {
	b := &Backend{}

	if withRedis || cfg.Store.Backend == "redis" {
		client, err := dialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.Redis = client
	}

	switch cfg.Store.Backend {
	case "memory", "":
		b.Store = kv.NewMemoryStore()
	case "redis":
		b.Store = kv.NewRedisStore(b.Redis, cfg.Store.KeyPrefix)
	case "postgres":
		pool, err := database.Open(ctx, cfg.Postgres)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.DB = pool
		b.Store = kv.NewPostgresStore(pool)
	case "file":
		store, err := kv.NewFileStore(cfg.Store.FilePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Store = store
	default:
		b.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return b, nil
}

func dialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "trafficportal",
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
