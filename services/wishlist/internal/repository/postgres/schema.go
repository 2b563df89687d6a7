package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/EcommerceGo/pkg/database"
)

var listSchema = []database.Statement{
	{Name: "create wishlist_lists", SQL: `
		CREATE TABLE IF NOT EXISTS wishlist_lists (
			id                  UUID PRIMARY KEY,
			owner_account_id    VARCHAR(64),
			owner_session_token VARCHAR(64),
			name                VARCHAR(255) NOT NULL,
			is_default          BOOLEAN,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT wishlist_lists_single_owner
				CHECK ((owner_account_id IS NULL) <> (owner_session_token IS NULL)),
			CONSTRAINT wishlist_lists_default_true
				CHECK (is_default IS NULL OR is_default)
		)`},
	{Name: "index wishlist_lists account", SQL: `
		CREATE INDEX IF NOT EXISTS idx_wishlist_lists_account ON wishlist_lists (owner_account_id)`},
	{Name: "index wishlist_lists session", SQL: `
		CREATE INDEX IF NOT EXISTS idx_wishlist_lists_session ON wishlist_lists (owner_session_token)`},
	{Name: "unique default list per account", SQL: `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_wishlist_lists_default_account
			ON wishlist_lists (owner_account_id) WHERE is_default`},
	{Name: "unique default list per session", SQL: `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_wishlist_lists_default_session
			ON wishlist_lists (owner_session_token) WHERE is_default`},
}

var itemSchema = []database.Statement{
	{Name: "create wishlist_items", SQL: `
		CREATE TABLE IF NOT EXISTS wishlist_items (
			id             UUID PRIMARY KEY,
			list_id        UUID NOT NULL,
			product_id     VARCHAR(64) NOT NULL,
			price_snapshot NUMERIC(12, 2),
			notified_price NUMERIC(12, 2),
			added_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{Name: "add wishlist_items notified_price", SQL: `
		ALTER TABLE wishlist_items ADD COLUMN IF NOT EXISTS notified_price NUMERIC(12, 2)`},
	{Name: "unique list product", SQL: `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_wishlist_items_list_product ON wishlist_items (list_id, product_id)`},
	{Name: "index wishlist_items product", SQL: `
		CREATE INDEX IF NOT EXISTS idx_wishlist_items_product ON wishlist_items (product_id)`},
	{Name: "index wishlist_items added_at", SQL: `
		CREATE INDEX IF NOT EXISTS idx_wishlist_items_added_at ON wishlist_items (added_at)`},
	{Name: "foreign key wishlist_items list", SQL: `
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_wishlist_items_list') THEN
				ALTER TABLE wishlist_items
					ADD CONSTRAINT fk_wishlist_items_list FOREIGN KEY (list_id) REFERENCES wishlist_lists (id);
			END IF;
		END
		$$`},
}

const (
	stmtCreateLegacyLists  = "create legacy default lists"
	stmtRepointLegacyItems = "repoint legacy items"
)

// legacyMigration folds the single-list layout, where items carried their
// owner directly, into one default list per distinct owner.
var legacyMigration = []database.Statement{
	{Name: "add legacy list_id", SQL: `
		ALTER TABLE wishlist_items ADD COLUMN IF NOT EXISTS list_id UUID`},
	{Name: "drop legacy ownerless rows", SQL: `
		DELETE FROM wishlist_items
		WHERE list_id IS NULL
			AND COALESCE(owner_account_id, '') = ''
			AND COALESCE(owner_session_token, '') = ''`},
	{Name: stmtCreateLegacyLists, SQL: `
		INSERT INTO wishlist_lists (id, owner_account_id, owner_session_token, name, is_default, created_at, updated_at)
		SELECT gen_random_uuid(), o.account_id, o.session_token, $1, TRUE, o.first_added, NOW()
		FROM (
			SELECT
				NULLIF(owner_account_id, '') AS account_id,
				CASE WHEN COALESCE(owner_account_id, '') = '' THEN owner_session_token END AS session_token,
				MIN(added_at) AS first_added
			FROM wishlist_items
			WHERE list_id IS NULL
			GROUP BY 1, 2
		) o
		ON CONFLICT DO NOTHING`},
	{Name: stmtRepointLegacyItems, SQL: `
		UPDATE wishlist_items i
		SET list_id = l.id
		FROM wishlist_lists l
		WHERE i.list_id IS NULL
			AND l.is_default
			AND (
				(COALESCE(i.owner_account_id, '') <> '' AND l.owner_account_id = i.owner_account_id)
				OR (COALESCE(i.owner_account_id, '') = '' AND l.owner_session_token = i.owner_session_token)
			)`},
	{Name: "dedupe legacy items", SQL: `
		DELETE FROM wishlist_items a
		USING wishlist_items b
		WHERE a.list_id = b.list_id
			AND a.product_id = b.product_id
			AND (a.added_at, a.id::text) > (b.added_at, b.id::text)`},
	{Name: "drop legacy owner columns", SQL: `
		ALTER TABLE wishlist_items DROP COLUMN owner_account_id, DROP COLUMN owner_session_token`},
	{Name: "require list_id", SQL: `
		ALTER TABLE wishlist_items ALTER COLUMN list_id SET NOT NULL`},
}

// SchemaManager owns the wishlist relations and the one-time legacy
// migration.
type SchemaManager struct {
	pool            database.DBTX
	logger          *slog.Logger
	defaultListName string
}

// NewSchemaManager creates a schema manager. defaultListName names the
// lists synthesized for legacy owners.
func NewSchemaManager(pool database.DBTX, logger *slog.Logger, defaultListName string) *SchemaManager {
	return &SchemaManager{pool: pool, logger: logger, defaultListName: defaultListName}
}

// EnsureSchema creates both relations if absent and migrates a legacy
// layout in between. Every step is idempotent.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	if err := database.ExecStatements(ctx, m.pool, listSchema, m.logger); err != nil {
		return fmt.Errorf("ensure list schema: %w", err)
	}
	if _, err := m.MigrateLegacySchema(ctx); err != nil {
		return err
	}
	if err := database.ExecStatements(ctx, m.pool, itemSchema, m.logger); err != nil {
		return fmt.Errorf("ensure item schema: %w", err)
	}
	return nil
}

// hasLegacyColumns reports whether wishlist_items still carries owner columns.
func (m *SchemaManager) hasLegacyColumns(ctx context.Context) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema()
				AND table_name = 'wishlist_items'
				AND column_name IN ('owner_account_id', 'owner_session_token')
		)`
	var legacy bool
	if err := m.pool.QueryRow(ctx, query).Scan(&legacy); err != nil {
		return false, fmt.Errorf("detect legacy wishlist schema: %w", err)
	}
	return legacy, nil
}

// MigrateLegacySchema converts a legacy items table in one transaction and
// reports whether it did anything. Absence of the legacy owner columns
// short-circuits it, so re-running is a no-op.
func (m *SchemaManager) MigrateLegacySchema(ctx context.Context) (bool, error) {
	legacy, err := m.hasLegacyColumns(ctx)
	if err != nil {
		return false, err
	}
	if !legacy {
		return false, nil
	}

	m.logger.Info("legacy wishlist schema detected, migrating")

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var listsCreated, itemsMoved int64
	for _, stmt := range legacyMigration {
		var args []any
		if stmt.Name == stmtCreateLegacyLists {
			args = append(args, m.defaultListName)
		}
		ct, err := tx.Exec(ctx, stmt.SQL, args...)
		if err != nil {
			return false, fmt.Errorf("migrate legacy schema: %s: %w", stmt.Name, err)
		}
		switch stmt.Name {
		case stmtCreateLegacyLists:
			listsCreated = ct.RowsAffected()
		case stmtRepointLegacyItems:
			itemsMoved = ct.RowsAffected()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	m.logger.Info("legacy wishlist schema migrated",
		slog.Int64("lists_created", listsCreated),
		slog.Int64("items_moved", itemsMoved),
	)
	return true, nil
}
