package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Revocations records revoked token IDs until their expiry.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations keeps revoked IDs in process memory.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRevocations) pruneLocked() {
	now := m.now()
	for id, until := range m.revoked {
		if !now.Before(until) {
			delete(m.revoked, id)
		}
	}
}

// RedisRevocations shares revoked IDs between API replicas. Keys expire with
// the token.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRevocations(client redis.UniversalClient, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "farm:revoked:"
	}
	return &RedisRevocations{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

func (r *RedisRevocations) Revoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, r.prefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
