package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
)

// Product topics consumed to keep the catalog cache fresh.
const (
	TopicProductUpdated = "ecommerce.product.updated"
	TopicProductDeleted = "ecommerce.product.deleted"
)

// productRef is the part of product event payloads the wishlist needs.
type productRef struct {
	ID string `json:"id"`
}

// ProductEvictor drops cached product lookups.
type ProductEvictor interface {
	Evict(productID string)
}

// ProductConsumer evicts catalog cache entries when products change.
type ProductConsumer struct {
	cache  ProductEvictor
	logger *slog.Logger
}

// NewProductConsumer creates a product event handler.
func NewProductConsumer(cache ProductEvictor, logger *slog.Logger) *ProductConsumer {
	return &ProductConsumer{cache: cache, logger: logger}
}

// Topics returns the topics the consumer subscribes to.
func (c *ProductConsumer) Topics() []string {
	return []string{TopicProductUpdated, TopicProductDeleted}
}

// Handle processes a product event.
func (c *ProductConsumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpdated, TopicProductDeleted:
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var ref productRef
	if err := event.UnmarshalData(&ref); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if ref.ID == "" {
		ref.ID = event.AggregateID
	}
	if ref.ID == "" {
		c.logger.WarnContext(ctx, "product event without id", slog.String("event_id", event.EventID))
		return nil
	}

	c.cache.Evict(ref.ID)
	c.logger.DebugContext(ctx, "evicted product from catalog cache",
		slog.String("product_id", ref.ID),
		slog.String("event_type", event.EventType),
	)
	return nil
}
