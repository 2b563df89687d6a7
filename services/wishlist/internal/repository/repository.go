package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

// ListRepository defines persistence operations for wishlists.
type ListRepository interface {
	// Create inserts a list for owner. The first list an owner ever gets is
	// flagged as its default.
	Create(ctx context.Context, owner domain.Owner, name string) (*domain.List, error)

	// GetByID returns a list or ErrNotFound. It does not check ownership.
	GetByID(ctx context.Context, id string) (*domain.List, error)

	// GetDefault returns the owner's default list or ErrNotFound.
	GetDefault(ctx context.Context, owner domain.Owner) (*domain.List, error)

	// EnsureDefault returns the owner's default list, creating it with name
	// when the owner has none. Concurrent callers get the same list.
	EnsureDefault(ctx context.Context, owner domain.Owner, name string) (*domain.List, error)

	// ListByOwner returns the owner's lists, default first then oldest first.
	ListByOwner(ctx context.Context, owner domain.Owner) ([]domain.List, error)

	// Rename updates the name and update timestamp of a list.
	Rename(ctx context.Context, id, name string) (*domain.List, error)

	// Delete removes a list and all of its items, children first.
	Delete(ctx context.Context, id string) error

	// DeleteExpiredAnonymous removes session-owned lists created before
	// cutoff together with their items and returns how many lists went.
	DeleteExpiredAnonymous(ctx context.Context, cutoff time.Time) (int, error)
}

// ItemRepository defines persistence operations for list items.
type ItemRepository interface {
	Exists(ctx context.Context, listID, productID string) (bool, error)

	// Add inserts item. A duplicate (list, product) pair yields
	// ErrAlreadyExists; a missing parent list yields ErrNotFound.
	Add(ctx context.Context, item *domain.Item) error

	// Remove deletes the (list, product) row and reports whether one existed.
	Remove(ctx context.Context, listID, productID string) (bool, error)

	// ListByList returns the list's items, newest first.
	ListByList(ctx context.Context, listID string) ([]domain.Item, error)

	// Popular aggregates item rows by product across every list.
	Popular(ctx context.Context, limit int) ([]domain.PopularProduct, error)

	CountByProduct(ctx context.Context, productID string) (int, error)

	// ListPriced pages through items with a positive price snapshot in id
	// order, joined with their list owner.
	ListPriced(ctx context.Context, afterID string, limit int) ([]domain.OwnedItem, error)

	// SetNotifiedPrice records the price a drop was last reported at.
	SetNotifiedPrice(ctx context.Context, itemID string, price decimal.Decimal) error
}

// ExportRepository streams the joined item/list/owner rowset.
type ExportRepository interface {
	Export(ctx context.Context, fn func(domain.ExportRow) error) error
}

// SessionStore issues and validates anonymous session tokens.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	// Touch reports whether token is live and extends its lifetime.
	Touch(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) error
}

// NoticeStore keeps one-time notices for accounts.
type NoticeStore interface {
	Push(ctx context.Context, accountID string, notice domain.Notice) error
	// Pop returns and clears every pending notice.
	Pop(ctx context.Context, accountID string) ([]domain.Notice, error)
}

// ContactStore remembers where an account can be emailed.
type ContactStore interface {
	Remember(ctx context.Context, accountID, email string) error
	// Lookup returns "" when no address is known.
	Lookup(ctx context.Context, accountID string) (string, error)
}
