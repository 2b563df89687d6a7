package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/EcommerceGo/pkg/database"
	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var listColumns = []string{
	"id", "owner_account_id", "owner_session_token", "name",
	"COALESCE(is_default, FALSE)", "created_at", "updated_at",
}

// ownerColumn returns the list column that identifies owners of o's kind.
func ownerColumn(o domain.Owner) (string, error) {
	if o.IsZero() {
		return "", apperrors.InvalidInput("wishlist owner is required")
	}
	switch o.Kind() {
	case domain.OwnerAccount:
		return "owner_account_id", nil
	case domain.OwnerSession:
		return "owner_session_token", nil
	default:
		return "", apperrors.InvalidInput("unknown wishlist owner kind")
	}
}

func scanList(row pgx.Row) (*domain.List, error) {
	var (
		l             domain.List
		account, sess *string
	)
	if err := row.Scan(&l.ID, &account, &sess, &l.Name, &l.IsDefault, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	owner, err := domain.OwnerFromColumns(account, sess)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.ID, err)
	}
	l.Owner = owner
	return &l, nil
}

// ListRepository implements repository.ListRepository using PostgreSQL.
type ListRepository struct {
	pool database.DBTX
	now  func() time.Time
}

// NewListRepository creates a new PostgreSQL-backed list repository.
func NewListRepository(pool database.DBTX) *ListRepository {
	return &ListRepository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a list. It becomes the owner's default when the owner has
// no default yet; losing that race to a concurrent insert retries the row as
// a regular list.
func (r *ListRepository) Create(ctx context.Context, owner domain.Owner, name string) (_ *domain.List, err error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	account, sess := owner.Columns()
	now := r.now()
	l := &domain.List{ID: uuid.NewString(), Owner: owner, Name: name, CreatedAt: now, UpdatedAt: now}

	query := fmt.Sprintf(`
		INSERT INTO wishlist_lists (id, owner_account_id, owner_session_token, name, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4,
			CASE WHEN EXISTS (SELECT 1 FROM wishlist_lists WHERE %s = $5 AND is_default) THEN NULL ELSE TRUE END,
			$6, $6)
		RETURNING COALESCE(is_default, FALSE)`, col)

	ctx, end := database.TraceQuery(ctx, "ListRepository.Create", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, query, l.ID, account, sess, name, owner.ID(), now).Scan(&l.IsDefault)
	if err == nil {
		return l, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	fallback := `
		INSERT INTO wishlist_lists (id, owner_account_id, owner_session_token, name, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $5)`
	if _, err = r.pool.Exec(ctx, fallback, l.ID, account, sess, name, now); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	l.IsDefault = false
	return l, nil
}

// GetByID retrieves a list by its ID.
func (r *ListRepository) GetByID(ctx context.Context, id string) (_ *domain.List, err error) {
	query, args, err := psql.Select(listColumns...).From("wishlist_lists").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get wishlist query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ListRepository.GetByID", query)
	defer func() { end(err) }()

	l, err := scanList(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", id)
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	return l, nil
}

// GetDefault retrieves the owner's default list.
func (r *ListRepository) GetDefault(ctx context.Context, owner domain.Owner) (_ *domain.List, err error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(listColumns...).
		From("wishlist_lists").
		Where(sq.Eq{col: owner.ID()}).
		Where("is_default").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build default wishlist query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ListRepository.GetDefault", query)
	defer func() { end(err) }()

	l, err := scanList(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("default wishlist", owner.Key())
		}
		return nil, fmt.Errorf("get default wishlist: %w", err)
	}
	return l, nil
}

// EnsureDefault returns the owner's default list, creating it when absent.
// The partial unique index on default lists makes concurrent calls converge
// on a single row.
func (r *ListRepository) EnsureDefault(ctx context.Context, owner domain.Owner, name string) (*domain.List, error) {
	l, err := r.GetDefault(ctx, owner)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	account, sess := owner.Columns()
	now := r.now()
	created := &domain.List{ID: uuid.NewString(), Owner: owner, Name: name, IsDefault: true, CreatedAt: now, UpdatedAt: now}

	query := `
		INSERT INTO wishlist_lists (id, owner_account_id, owner_session_token, name, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT DO NOTHING
		RETURNING id`

	insertCtx, end := database.TraceQuery(ctx, "ListRepository.EnsureDefault", query)
	var id string
	err = r.pool.QueryRow(insertCtx, query, created.ID, account, sess, name, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		end(nil)
	} else {
		end(err)
	}
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, pgx.ErrNoRows):
		return r.GetDefault(ctx, owner)
	default:
		return nil, fmt.Errorf("create default wishlist: %w", err)
	}
}

// ListByOwner returns every list held by owner, default first then by age.
func (r *ListRepository) ListByOwner(ctx context.Context, owner domain.Owner) (_ []domain.List, err error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(listColumns...).
		From("wishlist_lists").
		Where(sq.Eq{col: owner.ID()}).
		OrderBy("COALESCE(is_default, FALSE) DESC", "created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list wishlists query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ListRepository.ListByOwner", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close()

	lists := []domain.List{}
	for rows.Next() {
		l, scanErr := scanList(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan wishlist: %w", scanErr)
		}
		lists = append(lists, *l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}
	return lists, nil
}

// Rename sets a new name and bumps updated_at.
func (r *ListRepository) Rename(ctx context.Context, id, name string) (_ *domain.List, err error) {
	query, args, err := psql.Update("wishlist_lists").
		Set("name", name).
		Set("updated_at", r.now()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(listColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rename wishlist query: %w", err)
	}
	ctx, end := database.TraceQuery(ctx, "ListRepository.Rename", query)
	defer func() { end(err) }()

	l, err := scanList(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", id)
		}
		return nil, fmt.Errorf("rename wishlist: %w", err)
	}
	return l, nil
}

// Delete removes a list and its items. When the default list goes, the
// owner's oldest remaining list takes over the flag.
func (r *ListRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "ListRepository.Delete", "DELETE FROM wishlist_lists WHERE id = $1")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		account, sess *string
		wasDefault    bool
	)
	err = tx.QueryRow(ctx, `
		SELECT owner_account_id, owner_session_token, COALESCE(is_default, FALSE)
		FROM wishlist_lists
		WHERE id = $1
		FOR UPDATE`, id).Scan(&account, &sess, &wasDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("wishlist", id)
		}
		return fmt.Errorf("lock wishlist: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM wishlist_items WHERE list_id = $1`, id); err != nil {
		return fmt.Errorf("delete wishlist items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM wishlist_lists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}

	if wasDefault {
		owner, err := domain.OwnerFromColumns(account, sess)
		if err != nil {
			return fmt.Errorf("list %s: %w", id, err)
		}
		col, err := ownerColumn(owner)
		if err != nil {
			return err
		}
		promote := fmt.Sprintf(`
			UPDATE wishlist_lists SET is_default = TRUE
			WHERE id = (
				SELECT id FROM wishlist_lists WHERE %s = $1
				ORDER BY created_at ASC, id ASC
				LIMIT 1
			)`, col)
		if _, err := tx.Exec(ctx, promote, owner.ID()); err != nil {
			return fmt.Errorf("promote default wishlist: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteExpiredAnonymous removes session-owned lists created before cutoff.
// Account-owned lists are excluded by the predicate itself.
func (r *ListRepository) DeleteExpiredAnonymous(ctx context.Context, cutoff time.Time) (_ int, err error) {
	expired := `owner_account_id IS NULL AND owner_session_token IS NOT NULL AND created_at < $1`
	ctx, end := database.TraceQuery(ctx, "ListRepository.DeleteExpiredAnonymous", `DELETE FROM wishlist_lists WHERE `+expired)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM wishlist_items WHERE list_id IN (SELECT id FROM wishlist_lists WHERE `+expired+`)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("delete expired wishlist items: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM wishlist_lists WHERE `+expired, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired wishlists: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(ct.RowsAffected()), nil
}
