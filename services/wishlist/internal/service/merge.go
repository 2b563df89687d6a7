package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/event"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/metrics"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// Merge triggers.
const (
	MergeTriggerLogin    = "login"
	MergeTriggerRegister = "register"
)

// MergeService moves an anonymous session's lists into an account. Merges
// are best-effort: storage failures are logged and counted, never returned,
// so they cannot block authentication.
type MergeService struct {
	lists       repository.ListRepository
	items       repository.ItemRepository
	catalog     Catalog
	notices     repository.NoticeStore
	producer    *event.Producer
	logger      *slog.Logger
	enabled     bool
	defaultName string
	now         func() time.Time
}

// NewMergeService creates a new merge service. When enabled is false both
// merge operations are no-ops.
func NewMergeService(
	lists repository.ListRepository,
	items repository.ItemRepository,
	catalog Catalog,
	notices repository.NoticeStore,
	producer *event.Producer,
	logger *slog.Logger,
	enabled bool,
	defaultName string,
) *MergeService {
	if defaultName == "" {
		defaultName = domain.DefaultListName
	}
	return &MergeService{
		lists:       lists,
		items:       items,
		catalog:     catalog,
		notices:     notices,
		producer:    producer,
		logger:      logger,
		enabled:     enabled,
		defaultName: defaultName,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MergeOnLogin folds every list of the session into the account's default
// list. Products already there are skipped. The session's lists are
// deleted afterwards.
func (s *MergeService) MergeOnLogin(ctx context.Context, sessionToken, accountID string) (domain.MergeResult, error) {
	return s.merge(ctx, sessionToken, accountID, MergeTriggerLogin)
}

// MergeOnRegister recreates each of the session's lists under the new
// account, keeping their names, then deletes the session's lists.
func (s *MergeService) MergeOnRegister(ctx context.Context, sessionToken, accountID string) (domain.MergeResult, error) {
	return s.merge(ctx, sessionToken, accountID, MergeTriggerRegister)
}

func (s *MergeService) merge(ctx context.Context, sessionToken, accountID, trigger string) (domain.MergeResult, error) {
	var res domain.MergeResult
	if !s.enabled {
		return res, nil
	}
	if accountID == "" {
		return res, apperrors.Unauthorized("an authenticated account is required to merge wishlists")
	}
	if sessionToken == "" {
		return res, nil
	}

	source := domain.SessionOwner(sessionToken)
	account := domain.AccountOwner(accountID)
	log := s.logger.With(
		slog.String("trigger", trigger),
		slog.String("account_id", accountID),
		slog.String("session", source.String()),
	)

	anonLists, err := s.lists.ListByOwner(ctx, source)
	if err != nil {
		log.ErrorContext(ctx, "merge aborted: could not load session lists", slog.String("error", err.Error()))
		return res, nil
	}
	if len(anonLists) == 0 {
		return res, nil
	}

	var dest *domain.List
	if trigger == MergeTriggerLogin {
		dest, err = s.lists.EnsureDefault(ctx, account, s.defaultName)
		if err != nil {
			log.ErrorContext(ctx, "merge aborted: could not resolve account default list", slog.String("error", err.Error()))
			return res, nil
		}
	}

	for i := range anonLists {
		src := &anonLists[i]
		target := dest
		if target == nil {
			created, err := s.lists.Create(ctx, account, src.Name)
			if err != nil {
				log.ErrorContext(ctx, "could not recreate list for account",
					slog.String("list_id", src.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			res.ListsCreated++
			target = created
		}

		if !s.moveItems(ctx, log, src, target, &res) {
			continue
		}

		if err := s.lists.Delete(ctx, src.ID); err != nil {
			log.ErrorContext(ctx, "could not delete merged session list",
				slog.String("list_id", src.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.ListsRemoved++
	}

	metrics.RecordMerge(res.Merged, res.Skipped, res.Failed)
	s.afterMerge(ctx, log, accountID, trigger, res)
	return res, nil
}

// moveItems copies src's items into target keeping the original snapshot
// and timestamp. It reports false when src's items could not be read, in
// which case src must be kept.
func (s *MergeService) moveItems(ctx context.Context, log *slog.Logger, src, target *domain.List, res *domain.MergeResult) bool {
	items, err := s.items.ListByList(ctx, src.ID)
	if err != nil {
		log.ErrorContext(ctx, "could not read session list items, keeping list",
			slog.String("list_id", src.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	for _, it := range items {
		if _, ok := lookupValid(ctx, s.catalog, log, it.ProductID); !ok {
			res.Failed++
			continue
		}
		moved := &domain.Item{
			ListID:        target.ID,
			ProductID:     it.ProductID,
			PriceSnapshot: it.PriceSnapshot,
			AddedAt:       it.AddedAt,
		}
		err := s.items.Add(ctx, moved)
		switch {
		case err == nil:
			res.Merged++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.Skipped++
		default:
			res.Failed++
			log.WarnContext(ctx, "could not merge item",
				slog.String("product_id", it.ProductID),
				slog.String("target_list_id", target.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return true
}

func (s *MergeService) afterMerge(ctx context.Context, log *slog.Logger, accountID, trigger string, res domain.MergeResult) {
	if res.Merged > 0 {
		data, _ := json.Marshal(res)
		notice := domain.Notice{
			Kind:      domain.NoticeMerge,
			Message:   res.Message(),
			Data:      data,
			CreatedAt: s.now(),
		}
		if err := s.notices.Push(ctx, accountID, notice); err != nil {
			log.WarnContext(ctx, "could not store merge notice", slog.String("error", err.Error()))
		}
	}

	if err := s.producer.PublishListsMerged(ctx, accountID, trigger, res); err != nil {
		log.ErrorContext(ctx, "failed to publish lists merged event", slog.String("error", err.Error()))
	}

	log.InfoContext(ctx, "wishlist merge finished",
		slog.Int("merged", res.Merged),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Int("lists_removed", res.ListsRemoved),
		slog.Int("lists_created", res.ListsCreated),
	)
}
