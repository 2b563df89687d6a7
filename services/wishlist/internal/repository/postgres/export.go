package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/EcommerceGo/pkg/database"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

// ExportRepository streams every item joined with its list and owner.
type ExportRepository struct {
	pool database.DBTX
}

// NewExportRepository creates a new PostgreSQL-backed export repository.
func NewExportRepository(pool database.DBTX) *ExportRepository {
	return &ExportRepository{pool: pool}
}

// Export calls fn for each row in list creation order. An error from fn
// stops the iteration and is returned unchanged.
func (r *ExportRepository) Export(ctx context.Context, fn func(domain.ExportRow) error) error {
	query, args, err := psql.Select(
		"l.id", "l.name", "l.owner_account_id", "l.owner_session_token",
		"i.product_id", "i.price_snapshot", "i.added_at",
	).
		From("wishlist_items i").
		Join("wishlist_lists l ON l.id = i.list_id").
		OrderBy("l.created_at ASC", "l.id ASC", "i.added_at ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build export query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("export wishlist items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row           domain.ExportRow
			account, sess *string
		)
		if err := rows.Scan(&row.ListID, &row.ListName, &account, &sess, &row.ProductID, &row.PriceSnapshot, &row.AddedAt); err != nil {
			return fmt.Errorf("scan export row: %w", err)
		}
		owner, err := domain.OwnerFromColumns(account, sess)
		if err != nil {
			return fmt.Errorf("list %s: %w", row.ListID, err)
		}
		row.OwnerType = owner.Kind()
		row.OwnerID = owner.ID()
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate export rows: %w", err)
	}
	return nil
}
