package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists credentials in Redis so a restarted server keeps its
// session. Entries expire together after the configured TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed credential store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Token returns the stored bearer token
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, TokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SetToken stores the bearer token with the configured TTL
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	return s.client.Set(ctx, TokenKey, token, s.ttl).Err()
}

// AdminUser returns the cached admin profile
func (s *RedisStore) AdminUser(ctx context.Context) (*AdminProfile, error) {
	raw, err := s.client.Get(ctx, AdminKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var admin AdminProfile
	if err := json.Unmarshal([]byte(raw), &admin); err != nil {
		// A corrupt entry is treated as missing so login can overwrite it
		return nil, ErrNotFound
	}
	return &admin, nil
}

// SetAdminUser caches the admin profile as JSON with the configured TTL
func (s *RedisStore) SetAdminUser(ctx context.Context, admin *AdminProfile) error {
	raw, err := json.Marshal(admin)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, AdminKey, raw, s.ttl).Err()
}

// Clear removes the token and the cached profile
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, TokenKey, AdminKey).Err()
}
