// Package redis implements the Redis-backed coordination pieces of the hub:
// per-subject pending-job markers for sync mutual exclusion and the
// fire-and-forget notification queue.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewClient opens a go-redis client from the config and verifies the
// connection.
func NewClient(ctx context.Context, config Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr(),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PENDING JOB MARKERS
// ══════════════════════════════════════════════════════════════════════════════

// pendingKeyPrefix namespaces the sync markers.
const pendingKeyPrefix = "cphub:sync:pending:"

// PendingJobs implements the sync.JobGuard contract on a Redis SETNX marker.
// The marker carries a TTL as a safety net: a crashed worker that never
// released its marker must not block the subject forever.
type PendingJobs struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPendingJobs creates a PendingJobs guard. A non-positive TTL falls back
// to 15 minutes.
func NewPendingJobs(client *redis.Client, ttl time.Duration) *PendingJobs {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PendingJobs{client: client, ttl: ttl}
}

// TryAcquire takes the marker for a subject. Returns false when another run
// already holds it.
func (p *PendingJobs) TryAcquire(ctx context.Context, subjectID string) (bool, error) {
	ok, err := p.client.SetNX(ctx, pendingKeyPrefix+subjectID, time.Now().Format(time.RFC3339), p.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire pending marker: %w", err)
	}
	return ok, nil
}

// Release clears the marker after completion or definitive failure.
func (p *PendingJobs) Release(ctx context.Context, subjectID string) error {
	if err := p.client.Del(ctx, pendingKeyPrefix+subjectID).Err(); err != nil {
		return fmt.Errorf("release pending marker: %w", err)
	}
	return nil
}

// IsPending reports whether a sync for the subject is currently in flight.
func (p *PendingJobs) IsPending(ctx context.Context, subjectID string) (bool, error) {
	n, err := p.client.Exists(ctx, pendingKeyPrefix+subjectID).Result()
	if err != nil {
		return false, fmt.Errorf("check pending marker: %w", err)
	}
	return n > 0, nil
}
