package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minjaeoh/quality-metrics-service/internal/pkg/config"
)

// ErrMiss is returned when a snapshot key is absent
var ErrMiss = errors.New("cache miss")

// RedisCache stores aggregation snapshots so view endpoints do not re-read
// whole record sets on every request. Snapshots are invalidated after each
// successful upload for the domain and expire on their own otherwise.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(cfg *config.CacheConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.Int("db", cfg.DB),
	)

	return &RedisCache{
		client: client,
		ttl:    time.Duration(cfg.SnapshotTTL) * time.Second,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	r.logger.Info("closing redis connection")
	return r.client.Close()
}

func snapshotKey(domainName, view string) string {
	return fmt.Sprintf("agg:%s:%s", domainName, view)
}

// SetSnapshot stores a JSON-serialized aggregation result for a domain view
func (r *RedisCache) SetSnapshot(ctx context.Context, domainName, view string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey(domainName, view), data, r.ttl).Err()
}

// GetSnapshot loads a cached aggregation result into dest, ErrMiss when the
// key is absent
func (r *RedisCache) GetSnapshot(ctx context.Context, domainName, view string, dest interface{}) error {
	data, err := r.client.Get(ctx, snapshotKey(domainName, view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// InvalidateDomain drops every cached snapshot for a domain
func (r *RedisCache) InvalidateDomain(ctx context.Context, domainName string) error {
	pattern := fmt.Sprintf("agg:%s:*", domainName)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}

	r.logger.Debug("aggregation snapshots invalidated",
		slog.String("domain", domainName),
		slog.Int("key_count", len(keys)))
	return nil
}
