package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Persister reads and writes serialized store scopes
type Persister interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

// Key returns the storage key of a scope for one storefront session
func Key(scope Scope, sessionID string) string {
	return fmt.Sprintf("%s:%s", scope, sessionID)
}

// RedisPersister stores scopes as JSON strings in Redis
type RedisPersister struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisPersister creates a persister; a zero ttl keeps keys until deleted
func NewRedisPersister(client redis.Cmdable, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

// Load decodes the value at key into dest and reports whether the key existed
func (p *RedisPersister) Load(ctx context.Context, key string, dest any) (bool, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Save overwrites the value at key
func (p *RedisPersister) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
