package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const contactKeyPrefix = "wishlist:contact:"

// ContactStore implements repository.ContactStore. Addresses are learned
// from the email claim of authenticated requests.
type ContactStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewContactStore creates a new Redis-backed contact store.
func NewContactStore(client redis.Cmdable, ttl time.Duration) *ContactStore {
	return &ContactStore{client: client, ttl: ttl}
}

// Remember stores the account's address, refreshing its TTL.
func (s *ContactStore) Remember(ctx context.Context, accountID, email string) error {
	if accountID == "" || email == "" {
		return nil
	}
	if err := s.client.Set(ctx, contactKeyPrefix+accountID, email, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set contact: %w", err)
	}
	return nil
}

// Lookup returns the stored address or "" when none is known.
func (s *ContactStore) Lookup(ctx context.Context, accountID string) (string, error) {
	email, err := s.client.Get(ctx, contactKeyPrefix+accountID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get contact: %w", err)
	}
	return email, nil
}
