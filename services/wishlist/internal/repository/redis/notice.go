package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

const (
	noticeKeyPrefix = "wishlist:notices:"
	// maxPendingNotices caps the per-account queue; older notices fall off.
	maxPendingNotices = 20
)

// NoticeStore implements repository.NoticeStore as a capped Redis list.
type NoticeStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewNoticeStore creates a new Redis-backed notice store.
func NewNoticeStore(client redis.Cmdable, ttl time.Duration) *NoticeStore {
	return &NoticeStore{client: client, ttl: ttl}
}

// Push appends a notice for the account.
func (s *NoticeStore) Push(ctx context.Context, accountID string, notice domain.Notice) error {
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	key := noticeKeyPrefix + accountID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxPendingNotices, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push notice: %w", err)
	}
	return nil
}

// Pop returns all pending notices, oldest first, and clears them.
func (s *NoticeStore) Pop(ctx context.Context, accountID string) ([]domain.Notice, error) {
	key := noticeKeyPrefix + accountID
	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pop notices: %w", err)
	}

	raw := rangeCmd.Val()
	notices := make([]domain.Notice, 0, len(raw))
	for _, r := range raw {
		var n domain.Notice
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			continue
		}
		notices = append(notices, n)
	}
	return notices, nil
}
