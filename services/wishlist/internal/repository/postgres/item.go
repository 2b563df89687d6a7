package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/pkg/database"
	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

var itemColumns = []string{"id", "list_id", "product_id", "price_snapshot", "notified_price", "added_at"}

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// Exists checks whether the product is already in the list.
func (r *ItemRepository) Exists(ctx context.Context, listID, productID string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM wishlist_items WHERE list_id = $1 AND product_id = $2)`
	ctx, end := database.TraceQuery(ctx, "ItemRepository.Exists", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, listID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check wishlist item exists: %w", err)
	}
	return exists, nil
}

// Add inserts an item. The (list_id, product_id) unique constraint is the
// authoritative duplicate guard.
func (r *ItemRepository) Add(ctx context.Context, item *domain.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	query := `
		INSERT INTO wishlist_items (id, list_id, product_id, price_snapshot, notified_price, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "ItemRepository.Add", query)
	_, err := r.pool.Exec(ctx, query,
		item.ID, item.ListID, item.ProductID, item.PriceSnapshot, item.NotifiedPrice, item.AddedAt,
	)
	end(err)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return apperrors.AlreadyExists(domain.DuplicateItemMessage)
	case database.IsForeignKeyViolation(err):
		return apperrors.NotFound("wishlist", item.ListID)
	default:
		return fmt.Errorf("add wishlist item: %w", err)
	}
}

// Remove deletes a product from a list.
func (r *ItemRepository) Remove(ctx context.Context, listID, productID string) (bool, error) {
	query := `DELETE FROM wishlist_items WHERE list_id = $1 AND product_id = $2`

	ctx, end := database.TraceQuery(ctx, "ItemRepository.Remove", query)
	ct, err := r.pool.Exec(ctx, query, listID, productID)
	end(err)
	if err != nil {
		return false, fmt.Errorf("remove wishlist item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListByList returns all items of a list, newest first.
func (r *ItemRepository) ListByList(ctx context.Context, listID string) (_ []domain.Item, err error) {
	query, args, err := psql.Select(itemColumns...).
		From("wishlist_items").
		Where(sq.Eq{"list_id": listID}).
		OrderBy("added_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list items query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ItemRepository.ListByList", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err = rows.Scan(&it.ID, &it.ListID, &it.ProductID, &it.PriceSnapshot, &it.NotifiedPrice, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist item rows: %w", err)
	}
	return items, nil
}

// Popular counts items per product across all lists, most wishlisted first.
func (r *ItemRepository) Popular(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	q := psql.Select("product_id", "COUNT(*) AS wishlisted").
		From("wishlist_items").
		GroupBy("product_id").
		OrderBy("wishlisted DESC", "product_id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build popular products query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	defer rows.Close()

	out := []domain.PopularProduct{}
	for rows.Next() {
		var p domain.PopularProduct
		if err := rows.Scan(&p.ProductID, &p.Count); err != nil {
			return nil, fmt.Errorf("scan popular product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular product rows: %w", err)
	}
	return out, nil
}

// CountByProduct counts the lists, across all owners, that hold productID.
func (r *ItemRepository) CountByProduct(ctx context.Context, productID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wishlist_items WHERE product_id = $1`, productID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count wishlist items by product: %w", err)
	}
	return n, nil
}

// ListPriced returns up to limit items with a positive snapshot and an id
// greater than afterID, joined with the owner of their list.
func (r *ItemRepository) ListPriced(ctx context.Context, afterID string, limit int) (_ []domain.OwnedItem, err error) {
	q := psql.Select(
		"i.id", "i.list_id", "i.product_id", "i.price_snapshot", "i.notified_price", "i.added_at",
		"l.owner_account_id", "l.owner_session_token",
	).
		From("wishlist_items i").
		Join("wishlist_lists l ON l.id = i.list_id").
		Where("i.price_snapshot > 0").
		OrderBy("i.id ASC").
		Limit(uint64(limit))
	if afterID != "" {
		q = q.Where(sq.Gt{"i.id": afterID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build priced items query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ItemRepository.ListPriced", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list priced items: %w", err)
	}
	defer rows.Close()

	out := []domain.OwnedItem{}
	for rows.Next() {
		var (
			it            domain.OwnedItem
			account, sess *string
		)
		if err = rows.Scan(
			&it.ID, &it.ListID, &it.ProductID, &it.PriceSnapshot, &it.NotifiedPrice, &it.AddedAt,
			&account, &sess,
		); err != nil {
			return nil, fmt.Errorf("scan priced item: %w", err)
		}
		owner, ownerErr := domain.OwnerFromColumns(account, sess)
		if ownerErr != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, ownerErr)
		}
		it.Owner = owner
		out = append(out, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate priced item rows: %w", err)
	}
	return out, nil
}

// SetNotifiedPrice stores the price at which a drop was last reported.
func (r *ItemRepository) SetNotifiedPrice(ctx context.Context, itemID string, price decimal.Decimal) error {
	ct, err := r.pool.Exec(ctx, `UPDATE wishlist_items SET notified_price = $1 WHERE id = $2`, price, itemID)
	if err != nil {
		return fmt.Errorf("set notified price: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist item", itemID)
	}
	return nil
}
