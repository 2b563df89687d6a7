package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

// Kafka topic constants for wishlist domain events.
const (
	TopicItemAdded    = "ecommerce.wishlist.item_added"
	TopicItemRemoved  = "ecommerce.wishlist.item_removed"
	TopicListsMerged  = "ecommerce.wishlist.lists_merged"
	TopicPriceDropped = "ecommerce.wishlist.price_dropped"
)

// Aggregate type constants.
const (
	AggregateTypeWishlist = "wishlist"
	AggregateTypeAccount  = "account"
)

// Source identifier for events originating from the wishlist service.
const SourceWishlistService = "wishlist-service"

// ItemAddedData is the payload for a wishlist.item_added event. Session
// tokens are never published; anonymous owners carry only their kind.
type ItemAddedData struct {
	ListID        string `json:"list_id"`
	ItemID        string `json:"item_id"`
	ProductID     string `json:"product_id"`
	OwnerType     string `json:"owner_type"`
	AccountID     string `json:"account_id,omitempty"`
	PriceSnapshot string `json:"price_snapshot,omitempty"`
}

// ItemRemovedData is the payload for a wishlist.item_removed event.
type ItemRemovedData struct {
	ListID    string `json:"list_id"`
	ProductID string `json:"product_id"`
	OwnerType string `json:"owner_type"`
	AccountID string `json:"account_id,omitempty"`
}

// ListsMergedData is the payload for a wishlist.lists_merged event.
type ListsMergedData struct {
	AccountID    string `json:"account_id"`
	Trigger      string `json:"trigger"`
	Merged       int    `json:"merged"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	ListsRemoved int    `json:"lists_removed"`
	ListsCreated int    `json:"lists_created"`
}

// PriceDroppedData is the payload for a wishlist.price_dropped event.
type PriceDroppedData struct {
	AccountID string `json:"account_id"`
	ListID    string `json:"list_id"`
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	OldPrice  string `json:"old_price"`
	NewPrice  string `json:"new_price"`
	DropPct   string `json:"drop_pct"`
}

// Producer publishes wishlist domain events to Kafka.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the wishlist service.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func ownerFields(owner domain.Owner) (kind, accountID string) {
	if owner.IsAccount() {
		return string(owner.Kind()), owner.ID()
	}
	return string(owner.Kind()), ""
}

// PublishItemAdded publishes a wishlist.item_added event.
func (p *Producer) PublishItemAdded(ctx context.Context, owner domain.Owner, item *domain.Item) error {
	kind, accountID := ownerFields(owner)
	data := ItemAddedData{
		ListID:    item.ListID,
		ItemID:    item.ID,
		ProductID: item.ProductID,
		OwnerType: kind,
		AccountID: accountID,
	}
	if item.PriceSnapshot.Valid {
		data.PriceSnapshot = item.PriceSnapshot.Decimal.StringFixed(2)
	}
	return p.publish(ctx, TopicItemAdded, item.ListID, AggregateTypeWishlist, data)
}

// PublishItemRemoved publishes a wishlist.item_removed event.
func (p *Producer) PublishItemRemoved(ctx context.Context, owner domain.Owner, listID, productID string) error {
	kind, accountID := ownerFields(owner)
	data := ItemRemovedData{
		ListID:    listID,
		ProductID: productID,
		OwnerType: kind,
		AccountID: accountID,
	}
	return p.publish(ctx, TopicItemRemoved, listID, AggregateTypeWishlist, data)
}

// PublishListsMerged publishes a wishlist.lists_merged event.
func (p *Producer) PublishListsMerged(ctx context.Context, accountID, trigger string, res domain.MergeResult) error {
	data := ListsMergedData{
		AccountID:    accountID,
		Trigger:      trigger,
		Merged:       res.Merged,
		Skipped:      res.Skipped,
		Failed:       res.Failed,
		ListsRemoved: res.ListsRemoved,
		ListsCreated: res.ListsCreated,
	}
	return p.publish(ctx, TopicListsMerged, accountID, AggregateTypeAccount, data)
}

// PublishPriceDropped publishes a wishlist.price_dropped event.
func (p *Producer) PublishPriceDropped(ctx context.Context, drop domain.PriceDrop) error {
	data := PriceDroppedData{
		AccountID: drop.Owner.ID(),
		ListID:    drop.ListID,
		ItemID:    drop.ItemID,
		ProductID: drop.ProductID,
		OldPrice:  drop.OldPrice.StringFixed(2),
		NewPrice:  drop.NewPrice.StringFixed(2),
		DropPct:   drop.DropPct.StringFixed(2),
	}
	return p.publish(ctx, TopicPriceDropped, drop.ItemID, AggregateTypeWishlist, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceWishlistService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
