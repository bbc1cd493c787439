package token

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// RevocationStore tracks revoked refresh token ids (jti).
//
// MarkRevoked must be a single atomic check-and-mark: the first caller
// for a given jti gets true, every later caller gets false. Rotation
// exclusivity under concurrent refresh attempts depends on this, so a
// read-then-write implementation is not acceptable.
type RevocationStore interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisRevocationStore marks revoked token ids in redis. SetNX gives
// the atomic first-marker-wins semantics; the TTL matches the token's
// remaining lifetime so keys expire with the tokens they shadow.
type RedisRevocationStore struct {
	client *rdb.Client
}

// NewRedisRevocationStore creates a redis-backed revocation store
func NewRedisRevocationStore(client *rdb.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.SetNX(ctx, revokedKeyPrefix+jti, "1", ttl).Result()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationStore is the in-process fallback used when redis is
// not configured. go-cache's Add is atomic under its internal lock,
// which preserves first-marker-wins. Single-process deployments only.
type MemoryRevocationStore struct {
	cache *gocache.Cache
}

// NewMemoryRevocationStore creates an in-process revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryRevocationStore) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	// Add fails if the key already exists: exactly one caller wins.
	if err := s.cache.Add(revokedKeyPrefix+jti, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, found := s.cache.Get(revokedKeyPrefix + jti)
	return found, nil
}
