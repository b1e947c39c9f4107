package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix  = "plugtech-cart:"
	DefaultTTL = 30 * 24 * time.Hour
)

func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Persister stores one serialized cart per key. Load returns nil data and
// no error when the key does not exist.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPersister{client: client, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Save overwrites the snapshot and restarts its TTL.
func (p *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	if err := p.client.Set(ctx, key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (p *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	v := make([]byte, len(data))
	copy(v, data)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = v
	return nil
}
