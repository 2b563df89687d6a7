package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/event"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/metrics"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

// Item operation limits.
const (
	DefaultPopularLimit = 10
	MaxPopularLimit     = 100
	MaxMoveQuantity     = 100
)

// AddItemInput holds the parameters for adding a product to a list. An
// empty ListID targets the default list.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	ListID    string `json:"list_id" validate:"omitempty,uuid"`
}

// MoveToCartInput holds the parameters for moving an item to the cart.
type MoveToCartInput struct {
	ListID   string `json:"list_id" validate:"omitempty,uuid"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=1,lte=100"`
}

// MoveResult reports what a move to cart did.
type MoveResult struct {
	ProductID       string `json:"product_id"`
	ListID          string `json:"list_id"`
	Quantity        int    `json:"quantity"`
	RemovedFromList bool   `json:"removed_from_list"`
}

// ItemService implements item membership, listing and move to cart.
type ItemService struct {
	lists       *ListService
	items       repository.ItemRepository
	catalog     Catalog
	stock       StockChecker
	cart        Cart
	producer    *event.Producer
	logger      *slog.Logger
	moveRemoves bool
	now         func() time.Time
}

// NewItemService creates a new item service.
func NewItemService(
	lists *ListService,
	items repository.ItemRepository,
	catalog Catalog,
	stock StockChecker,
	cart Cart,
	producer *event.Producer,
	logger *slog.Logger,
	moveRemoves bool,
) *ItemService {
	return &ItemService{
		lists:       lists,
		items:       items,
		catalog:     catalog,
		stock:       stock,
		cart:        cart,
		producer:    producer,
		logger:      logger,
		moveRemoves: moveRemoves,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add puts a product into a list with a snapshot of its current price.
func (s *ItemService) Add(ctx context.Context, actor domain.Owner, input AddItemInput) (*domain.Item, error) {
	if err := validateProductID(input.ProductID); err != nil {
		return nil, err
	}
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}

	// Validate before resolving so a rejected add never creates a default list.
	product, ok := lookupValid(ctx, s.catalog, s.logger, input.ProductID)
	if !ok {
		return nil, apperrors.InvalidInput("this product cannot be added to a wishlist")
	}
	list, err := s.lists.Resolve(ctx, actor, input.ListID)
	if err != nil {
		return nil, err
	}

	exists, err := s.items.Exists(ctx, list.ID, input.ProductID)
	if err != nil {
		return nil, userFailure(err, "could not add to wishlist, please try again")
	}
	if exists {
		return nil, apperrors.AlreadyExists(domain.DuplicateItemMessage)
	}

	item := &domain.Item{
		ListID:        list.ID,
		ProductID:     input.ProductID,
		PriceSnapshot: product.Price,
		AddedAt:       s.now(),
	}
	if err := s.items.Add(ctx, item); err != nil {
		return nil, userFailure(err, "could not add to wishlist, please try again")
	}
	metrics.ItemsAdded.Inc()

	if err := s.producer.PublishItemAdded(ctx, actor, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish item added event",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product added to wishlist",
		slog.String("list_id", list.ID),
		slog.String("product_id", item.ProductID),
		slog.String("owner", actor.String()),
	)
	return item, nil
}

// Remove deletes a product from a list.
func (s *ItemService) Remove(ctx context.Context, actor domain.Owner, productID, listID string) error {
	if err := validateProductID(productID); err != nil {
		return err
	}
	list, err := s.targetList(ctx, actor, listID)
	if err != nil {
		return err
	}
	if list == nil {
		return apperrors.NotFound("wishlist item", productID)
	}

	removed, err := s.items.Remove(ctx, list.ID, productID)
	if err != nil {
		return userFailure(err, "could not remove from wishlist, please try again")
	}
	if !removed {
		return apperrors.NotFound("wishlist item", productID)
	}

	if err := s.producer.PublishItemRemoved(ctx, actor, list.ID, productID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish item removed event",
			slog.String("list_id", list.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// IsInList reports whether the product is in the list. It never creates a
// default list.
func (s *ItemService) IsInList(ctx context.Context, actor domain.Owner, productID, listID string) (bool, error) {
	if err := validateProductID(productID); err != nil {
		return false, err
	}
	if actor.IsZero() {
		return false, nil
	}
	list, err := s.targetList(ctx, actor, listID)
	if err != nil || list == nil {
		return false, err
	}
	exists, err := s.items.Exists(ctx, list.ID, productID)
	if err != nil {
		return false, fmt.Errorf("check wishlist item: %w", err)
	}
	return exists, nil
}

// Count returns the number of items in the list whose product is still
// valid in the catalog.
func (s *ItemService) Count(ctx context.Context, actor domain.Owner, listID string) (int, error) {
	views, err := s.validItems(ctx, actor, listID)
	if err != nil {
		return 0, err
	}
	return len(views), nil
}

// ListItems returns a page of valid items, newest first, and the total
// number of valid items. A limit of zero means no limit.
func (s *ItemService) ListItems(ctx context.Context, actor domain.Owner, listID string, limit, offset int) ([]domain.ItemView, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, apperrors.InvalidInput("limit and offset must not be negative")
	}
	views, err := s.validItems(ctx, actor, listID)
	if err != nil {
		return nil, 0, err
	}
	total := len(views)
	if offset >= total {
		return []domain.ItemView{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return views[offset:end], total, nil
}

func (s *ItemService) validItems(ctx context.Context, actor domain.Owner, listID string) ([]domain.ItemView, error) {
	list, err := s.lists.Get(ctx, actor, listID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}

	views := make([]domain.ItemView, 0, len(items))
	for _, it := range items {
		product, ok := lookupValid(ctx, s.catalog, s.logger, it.ProductID)
		if !ok {
			continue
		}
		views = append(views, domain.ItemView{
			Item:         it,
			Name:         product.Name,
			Permalink:    product.Permalink,
			CurrentPrice: product.Price,
			Purchasable:  product.Purchasable,
		})
	}
	return views, nil
}

// Popular returns the most wishlisted products across every list.
func (s *ItemService) Popular(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	switch {
	case limit <= 0:
		limit = DefaultPopularLimit
	case limit > MaxPopularLimit:
		limit = MaxPopularLimit
	}
	popular, err := s.items.Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	return popular, nil
}

// CountByProduct returns how many lists contain the product.
func (s *ItemService) CountByProduct(ctx context.Context, productID string) (int, error) {
	if err := validateProductID(productID); err != nil {
		return 0, err
	}
	n, err := s.items.CountByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("count by product: %w", err)
	}
	return n, nil
}

// MoveToCart adds a wishlisted product to the owner's cart and, when
// configured, removes it from the list.
func (s *ItemService) MoveToCart(ctx context.Context, actor domain.Owner, productID string, input MoveToCartInput) (*MoveResult, error) {
	if err := validateProductID(productID); err != nil {
		return nil, err
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 || qty > MaxMoveQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 1 and %d", MaxMoveQuantity))
	}

	list, err := s.targetList(ctx, actor, input.ListID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, apperrors.NotFound("wishlist item", productID)
	}
	exists, err := s.items.Exists(ctx, list.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("check wishlist item: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("wishlist item", productID)
	}

	product, ok := lookupValid(ctx, s.catalog, s.logger, productID)
	if !ok || !product.Purchasable {
		return nil, apperrors.InvalidInput("this product cannot be purchased right now")
	}
	inStock, err := s.stock.InStock(ctx, productID, product.DefaultVariantID, qty)
	if err != nil {
		return nil, userFailure(err, "could not check stock, please try again")
	}
	if !inStock {
		return nil, apperrors.Conflict("this product is out of stock")
	}

	if err := s.cart.AddToCart(ctx, actor, product, qty); err != nil {
		return nil, userFailure(err, "could not add to cart, please try again")
	}

	res := &MoveResult{ProductID: productID, ListID: list.ID, Quantity: qty}
	if s.moveRemoves {
		removed, err := s.items.Remove(ctx, list.ID, productID)
		if err != nil {
			s.logger.WarnContext(ctx, "moved to cart but failed to remove from wishlist",
				slog.String("list_id", list.ID),
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
		res.RemovedFromList = removed
		if removed {
			if err := s.producer.PublishItemRemoved(ctx, actor, list.ID, productID); err != nil {
				s.logger.ErrorContext(ctx, "failed to publish item removed event", slog.String("error", err.Error()))
			}
		}
	}
	return res, nil
}

// targetList resolves an explicit list (ownership enforced) or the
// existing default list. It returns nil when no default list exists yet.
func (s *ItemService) targetList(ctx context.Context, actor domain.Owner, listID string) (*domain.List, error) {
	if listID != "" {
		return s.lists.Get(ctx, actor, listID)
	}
	if err := requireIdentity(actor); err != nil {
		return nil, err
	}
	return s.lists.FindDefault(ctx, actor)
}
