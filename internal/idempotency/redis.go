package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicate indicates the key was already claimed within its TTL.
var ErrDuplicate = errors.New("idempotent request already processed")

// Store claims request keys in redis so a retried submission is not applied twice.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Connect creates a redis client and verifies it answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("idempotency: ping: %w", err)
	}
	return client, nil
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

// Claim records key under scope. It returns ErrDuplicate when the key is already held.
func (s *Store) Claim(ctx context.Context, scope, key string) error {
	if key == "" {
		return errors.New("idempotency key required")
	}
	ok, err := s.client.SetNX(ctx, s.key(scope, key), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency: claim: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release frees a key, typically after the guarded operation failed.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(scope, key)).Err()
}
