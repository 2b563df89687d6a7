package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/event"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/metrics"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/notify"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// DefaultScanBatchSize is the number of items read per page during a scan.
const DefaultScanBatchSize = 500

// PriceDropConfig controls detection and delivery.
type PriceDropConfig struct {
	Threshold       decimal.Decimal
	EmailEnabled    bool
	NoticeEnabled   bool
	SuppressRepeats bool
	BatchSize       int
}

// PriceDropService compares price snapshots with current catalog prices
// and notifies account owners of drops.
type PriceDropService struct {
	items    repository.ItemRepository
	catalog  Catalog
	contacts repository.ContactStore
	notices  repository.NoticeStore
	sender   notify.Sender
	producer *event.Producer
	logger   *slog.Logger
	cfg      PriceDropConfig
	now      func() time.Time
}

// NewPriceDropService creates a new price-drop scanner.
func NewPriceDropService(
	items repository.ItemRepository,
	catalog Catalog,
	contacts repository.ContactStore,
	notices repository.NoticeStore,
	sender notify.Sender,
	producer *event.Producer,
	logger *slog.Logger,
	cfg PriceDropConfig,
) *PriceDropService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultScanBatchSize
	}
	return &PriceDropService{
		items:    items,
		catalog:  catalog,
		contacts: contacts,
		notices:  notices,
		sender:   sender,
		producer: producer,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Scan walks every priced item once, reports every drop at or above the
// threshold and notifies the owning accounts. Per-item failures are counted
// and skipped; only a failure to read the item set aborts the run.
func (s *PriceDropService) Scan(ctx context.Context) (domain.ScanReport, error) {
	report := domain.ScanReport{Drops: []domain.PriceDrop{}}
	byAccount := make(map[string][]domain.PriceDrop)

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := s.items.ListPriced(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return report, fmt.Errorf("scan priced items: %w", err)
		}
		for _, it := range page {
			report.Scanned++
			drop, ok := s.evaluate(ctx, it, &report)
			if !ok {
				continue
			}
			report.Drops = append(report.Drops, drop)
			if drop.Notify {
				byAccount[drop.Owner.ID()] = append(byAccount[drop.Owner.ID()], drop)
			}
		}
		if len(page) < s.cfg.BatchSize {
			break
		}
		afterID = page[len(page)-1].ID
	}

	accounts := make([]string, 0, len(byAccount))
	for id := range byAccount {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)
	for _, accountID := range accounts {
		if s.deliver(ctx, accountID, byAccount[accountID]) {
			report.Notified++
		}
	}

	s.logger.InfoContext(ctx, "price drop scan finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("candidates", report.Candidates),
		slog.Int("notified_accounts", report.Notified),
		slog.Int("suppressed", report.Suppressed),
		slog.Int("anonymous", report.Anonymous),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *PriceDropService) evaluate(ctx context.Context, it domain.OwnedItem, report *domain.ScanReport) (domain.PriceDrop, bool) {
	if !it.PriceSnapshot.Valid || !it.PriceSnapshot.Decimal.IsPositive() {
		return domain.PriceDrop{}, false
	}
	product, err := s.catalog.GetProduct(ctx, it.ProductID)
	if err != nil {
		report.Failed++
		s.logger.WarnContext(ctx, "price lookup failed",
			slog.String("product_id", it.ProductID),
			slog.String("item_id", it.ID),
			slog.String("error", err.Error()),
		)
		return domain.PriceDrop{}, false
	}
	if !product.Valid() || !product.Price.Valid {
		return domain.PriceDrop{}, false
	}

	old, current := it.PriceSnapshot.Decimal, product.Price.Decimal
	if !domain.IsDrop(old, current, s.cfg.Threshold) {
		return domain.PriceDrop{}, false
	}

	report.Candidates++
	metrics.PriceDropsDetected.Inc()
	drop := domain.PriceDrop{
		Owner:       it.Owner,
		ListID:      it.ListID,
		ItemID:      it.ID,
		ProductID:   it.ProductID,
		ProductName: product.Name,
		Permalink:   product.Permalink,
		OldPrice:    old,
		NewPrice:    current,
		DropPct:     domain.DropPercent(old, current),
	}
	switch {
	case !it.Owner.IsAccount():
		report.Anonymous++
	case s.cfg.SuppressRepeats && it.NotifiedPrice.Valid && current.GreaterThanOrEqual(it.NotifiedPrice.Decimal):
		report.Suppressed++
	default:
		drop.Notify = true
	}
	return drop, true
}

// deliver sends one account's drops over every enabled channel and
// reports whether at least one of them succeeded.
func (s *PriceDropService) deliver(ctx context.Context, accountID string, drops []domain.PriceDrop) bool {
	log := s.logger.With(slog.String("account_id", accountID), slog.Int("drops", len(drops)))
	delivered := false

	if s.cfg.EmailEnabled {
		addr, err := s.contacts.Lookup(ctx, accountID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "could not look up account email", slog.String("error", err.Error()))
		case addr == "":
			log.DebugContext(ctx, "no email address on file, skipping price drop email")
		default:
			if err := s.sender.SendPriceDrops(ctx, addr, drops); err != nil {
				log.WarnContext(ctx, "price drop email failed", slog.String("error", err.Error()))
			} else {
				delivered = true
			}
		}
	}

	if s.cfg.NoticeEnabled {
		data, _ := json.Marshal(drops)
		notice := domain.Notice{
			Kind:      domain.NoticePriceDrop,
			Message:   fmt.Sprintf("%d item(s) on your wishlist dropped in price", len(drops)),
			Data:      data,
			CreatedAt: s.now(),
		}
		if err := s.notices.Push(ctx, accountID, notice); err != nil {
			log.WarnContext(ctx, "could not store price drop notice", slog.String("error", err.Error()))
		} else {
			delivered = true
		}
	}

	for _, d := range drops {
		if err := s.producer.PublishPriceDropped(ctx, d); err != nil {
			log.ErrorContext(ctx, "failed to publish price dropped event",
				slog.String("item_id", d.ItemID),
				slog.String("error", err.Error()),
			)
			continue
		}
		delivered = true
	}

	if delivered && s.cfg.SuppressRepeats {
		for _, d := range drops {
			if err := s.items.SetNotifiedPrice(ctx, d.ItemID, d.NewPrice); err != nil {
				log.WarnContext(ctx, "could not record notified price",
					slog.String("item_id", d.ItemID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return delivered
}
