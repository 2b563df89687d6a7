package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "wishlist:session:"

// SessionStore implements repository.SessionStore using Redis keys with a
// sliding TTL.
type SessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client redis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create issues a new 128-bit random token.
func (s *SessionStore) Create(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	ok, err := s.client.SetNX(ctx, sessionKeyPrefix+token, time.Now().UTC().Unix(), s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis set session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("session token collision")
	}
	return token, nil
}

// Touch reports whether the token is live and slides its expiry.
func (s *SessionStore) Touch(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := s.client.Expire(ctx, sessionKeyPrefix+token, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis touch session: %w", err)
	}
	return ok, nil
}

// Delete forgets a session. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
