package redisStore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"deskrag/internal/config"
	"deskrag/pkg/logger_i"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    *logger_i.Logger
	once      sync.Once
)

// Store is a thin KV wrapper over one redis logical database.
type Store struct {
	client *redis.Client
	DB     int
}

// GetRedisStore returns the shared store for a redis DB index, creating it
// on first use. Returns nil when redis is unreachable so callers can fall
// back to the in-memory store.
func GetRedisStore(ctx context.Context, db int) *Store {
	mu.RLock()
	instance, exists := instances[db]
	mu.RUnlock()
	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()
	if instance, exists = instances[db]; exists {
		return instance
	}
	return createNewStore(ctx, db)
}

func createNewStore(ctx context.Context, db int) *Store {
	if logger == nil {
		logger = logger_i.NewLogger("RedisStore")
	}

	client := redis.NewClient(&redis.Options{
		Addr:                  config.RedisAddr,
		Password:              config.RedisPassword,
		DB:                    db,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("redis is offline", "addr", config.RedisAddr, "error", err)
		return nil
	}

	newStore := &Store{client: client, DB: db}
	instances[db] = newStore
	once.Do(func() {
		go closeOnShutdown(ctx)
	})
	logger.Info("redis store ready", "db", db)
	return newStore
}

func closeOnShutdown(ctx context.Context) {
	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	for _, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("error closing redis client", "error", err)
		}
	}
	logger.Info("redis stores closed")
}

func (s *Store) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// NewTestStore wraps an externally constructed client; tests pair it with
// miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
