package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

// RevocationList remembers credentials invalidated by logout until they expire.
type RevocationList interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// RedisRevocationList stores revoked token hashes with the token's remaining lifetime as TTL.
type RedisRevocationList struct {
	client redis.UniversalClient
}

func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRevocationList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revocationKey(token), "logout", ttl).Err()
}

// MemoryRevocationList is the single-process fallback used when Redis is disabled.
// Entries live for maxTTL, which is at least any token's remaining lifetime.
type MemoryRevocationList struct {
	cache *expirable.LRU[string, struct{}]
}

func NewMemoryRevocationList(size int, maxTTL time.Duration) *MemoryRevocationList {
	if size <= 0 {
		size = 10000
	}
	return &MemoryRevocationList{cache: expirable.NewLRU[string, struct{}](size, nil, maxTTL)}
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, token string) (bool, error) {
	return m.cache.Contains(revocationKey(token)), nil
}

func (m *MemoryRevocationList) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.cache.Add(revocationKey(token), struct{}{})
	return nil
}

// NewRevocationList picks Redis when it is enabled and reachable.
func NewRevocationList(cfg *config.Config) RevocationList {
	maxTTL := time.Duration(cfg.JWT.ExpireHour) * time.Hour
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Infof("[Revocation] Using Redis at %s", cfg.Redis.Addr)
			return NewRedisRevocationList(client)
		}
		logger.Warnf("[Revocation] Redis unreachable (%v), using in-memory list", err)
		client.Close()
	}
	return NewMemoryRevocationList(0, maxTTL)
}
