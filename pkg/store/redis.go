package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/fsmkit"
)

// RedisStore implements Store on top of a Redis instance. Snapshots are
// stored as JSON strings under prefix+ID keys.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "fsm:snapshot:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

// WithTTL sets an expiration on saved snapshots. Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.ttl = ttl
	}
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: "fsm:snapshot:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save persists a snapshot, overwriting any existing snapshot with the same ID.
func (r *RedisStore) Save(ctx context.Context, snap fsmkit.Snapshot) error {
	if snap.ID == "" {
		return ErrInvalidSnapshot
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}
	if err := r.client.Set(ctx, r.prefix+snap.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snap.ID, err)
	}
	return nil
}

// Load retrieves a snapshot by machine ID.
func (r *RedisStore) Load(ctx context.Context, id string) (fsmkit.Snapshot, error) {
	data, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fsmkit.Snapshot{}, ErrSnapshotNotFound
		}
		return fsmkit.Snapshot{}, fmt.Errorf("redis get %s: %w", id, err)
	}

	var snap fsmkit.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fsmkit.Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Delete removes a snapshot by machine ID.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}
