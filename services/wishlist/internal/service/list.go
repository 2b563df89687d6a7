package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// ListInput holds the parameters for creating or renaming a list.
type ListInput struct {
	Name string `json:"name" validate:"max=500"`
}

// ListService implements list ownership and lifecycle rules.
type ListService struct {
	lists       repository.ListRepository
	logger      *slog.Logger
	defaultName string
	maxNameLen  int
}

// NewListService creates a new list service.
func NewListService(lists repository.ListRepository, logger *slog.Logger, defaultName string, maxNameLen int) *ListService {
	if defaultName == "" {
		defaultName = domain.DefaultListName
	}
	return &ListService{
		lists:       lists,
		logger:      logger,
		defaultName: defaultName,
		maxNameLen:  maxNameLen,
	}
}

func (s *ListService) sanitize(name string) string {
	return domain.SanitizeName(name, s.maxNameLen, s.defaultName)
}

// Create adds a list for owner on behalf of actor. Acting for anyone but
// yourself fails closed.
func (s *ListService) Create(ctx context.Context, actor, owner domain.Owner, name string) (*domain.List, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		owner = actor
	}
	if owner != actor {
		s.logger.WarnContext(ctx, "authorization violation: create list for another owner",
			slog.String("principal", actor.String()),
			slog.String("target_owner", owner.String()),
		)
		return nil, apperrors.Forbidden("you may only create wishlists for yourself")
	}

	list, err := s.lists.Create(ctx, owner, s.sanitize(name))
	if err != nil {
		return nil, userFailure(err, "could not create wishlist, please try again")
	}

	s.logger.InfoContext(ctx, "wishlist created",
		slog.String("list_id", list.ID),
		slog.String("owner", owner.String()),
		slog.Bool("is_default", list.IsDefault),
	)
	return list, nil
}

// Get returns the list when actor owns it. Lists held by someone else are
// reported as not found.
func (s *ListService) Get(ctx context.Context, actor domain.Owner, listID string) (*domain.List, error) {
	if err := validateListID(listID); err != nil {
		return nil, err
	}
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.OwnedBy(actor) {
		s.logger.WarnContext(ctx, "authorization violation: list access by non-owner",
			slog.String("principal", actor.String()),
			slog.String("list_id", listID),
		)
		return nil, apperrors.NotFound("wishlist", listID)
	}
	return list, nil
}

// Rename re-sanitizes and stores a new name.
func (s *ListService) Rename(ctx context.Context, actor domain.Owner, listID, name string) (*domain.List, error) {
	if _, err := s.Get(ctx, actor, listID); err != nil {
		return nil, err
	}
	list, err := s.lists.Rename(ctx, listID, s.sanitize(name))
	if err != nil {
		return nil, userFailure(err, "could not rename wishlist, please try again")
	}
	return list, nil
}

// Delete removes the list and its items.
func (s *ListService) Delete(ctx context.Context, actor domain.Owner, listID string) error {
	if _, err := s.Get(ctx, actor, listID); err != nil {
		return err
	}
	if err := s.lists.Delete(ctx, listID); err != nil {
		return userFailure(err, "could not delete wishlist, please try again")
	}
	s.logger.InfoContext(ctx, "wishlist deleted",
		slog.String("list_id", listID),
		slog.String("owner", actor.String()),
	)
	return nil
}

// ListFor returns the actor's lists, default first. Without an identity
// there are no owned lists.
func (s *ListService) ListFor(ctx context.Context, actor domain.Owner) ([]domain.List, error) {
	if actor.IsZero() {
		return []domain.List{}, nil
	}
	lists, err := s.lists.ListByOwner(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	return lists, nil
}

// DefaultFor returns the actor's default list, creating it on first use.
func (s *ListService) DefaultFor(ctx context.Context, actor domain.Owner) (*domain.List, error) {
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	list, err := s.lists.EnsureDefault(ctx, actor, s.defaultName)
	if err != nil {
		return nil, fmt.Errorf("resolve default wishlist: %w", err)
	}
	return list, nil
}

// FindDefault returns the actor's default list without creating one. It
// returns nil when the actor has no lists yet.
func (s *ListService) FindDefault(ctx context.Context, actor domain.Owner) (*domain.List, error) {
	if actor.IsZero() {
		return nil, nil
	}
	list, err := s.lists.GetDefault(ctx, actor)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find default wishlist: %w", err)
	}
	return list, nil
}

// Resolve returns the named list when listID is set and owned by actor,
// otherwise the actor's default list.
func (s *ListService) Resolve(ctx context.Context, actor domain.Owner, listID string) (*domain.List, error) {
	if listID == "" {
		return s.DefaultFor(ctx, actor)
	}
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, listID)
}

// isNotFound reports whether err is a not-found AppError.
func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
