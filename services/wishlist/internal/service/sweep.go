package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/metrics"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// SweepService removes stale anonymous lists.
type SweepService struct {
	lists      repository.ListRepository
	logger     *slog.Logger
	expiryDays int
	now        func() time.Time
}

// NewSweepService creates a sweeper for lists older than expiryDays.
func NewSweepService(lists repository.ListRepository, logger *slog.Logger, expiryDays int) *SweepService {
	return &SweepService{
		lists:      lists,
		logger:     logger,
		expiryDays: expiryDays,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps with the configured expiry.
func (s *SweepService) Run(ctx context.Context) error {
	_, err := s.SweepExpired(ctx, s.expiryDays)
	return err
}

// SweepExpired deletes session-owned lists created more than maxAgeDays
// ago, with their items, and returns how many lists were removed.
// Account-owned lists are never touched.
func (s *SweepService) SweepExpired(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, apperrors.InvalidInput("max age must be at least one day")
	}
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)

	n, err := s.lists.DeleteExpiredAnonymous(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired wishlists: %w", err)
	}
	metrics.SweepDeletedLists.Add(float64(n))

	s.logger.InfoContext(ctx, "expired anonymous wishlists swept",
		slog.Int("deleted_lists", n),
		slog.Int("max_age_days", maxAgeDays),
		slog.Time("cutoff", cutoff),
	)
	return n, nil
}
