package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore tracks revoked token JTIs until their natural expiry.
// Logout revokes the presented pair; the session middleware consults the
// store on every authenticated request.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) bool
}

// MemoryRevocationStore keeps revoked JTIs in memory with periodic cleanup
// of expired entries. Suitable for single-process deployments; multi-node
// deployments should use the redis-backed store so a logout on one node is
// visible on all of them.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // JTI -> token expiry
	done    chan struct{}
}

// NewMemoryRevocationStore creates a store and starts a background goroutine
// that removes expired entries every 5 minutes.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.entries[jti]
	return ok && time.Now().Before(exp)
}

// Close stops the cleanup goroutine.
func (s *MemoryRevocationStore) Close() {
	close(s.done)
}

func (s *MemoryRevocationStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryRevocationStore) cleanup() {
	now := time.Now()
	s.mu.Lock()
	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
	s.mu.Unlock()
}

// RedisRevocationStore persists revoked JTIs in redis, keyed with a TTL that
// matches the token's remaining lifetime so entries expire on their own.
type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func revocationKey(jti string) string {
	return "revoked_jti:" + jti
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired; nothing to track.
		return nil
	}
	return s.client.Set(ctx, revocationKey(jti), 1, ttl).Err()
}

// IsRevoked treats a redis error as "not revoked": failing open here only
// means an already-authenticated token stays valid until expiry, whereas
// failing closed would take the whole API down with the cache.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) bool {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false
	}
	return n > 0
}
