package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

// Catalog resolves product identity, visibility and price.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// StockChecker answers whether a variant can be sold in the given quantity.
type StockChecker interface {
	InStock(ctx context.Context, productID, variantID string, qty int) (bool, error)
}

// Cart adds products to an owner's cart.
type Cart interface {
	AddToCart(ctx context.Context, owner domain.Owner, product domain.Product, qty int) error
}

// MaxProductIDLength matches the product_id column width.
const MaxProductIDLength = 64

func validateListID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.InvalidInput("invalid wishlist id")
	}
	return nil
}

func validateProductID(id string) error {
	if id == "" || len(id) > MaxProductIDLength {
		return apperrors.InvalidInput("invalid product id")
	}
	return nil
}

func requireIdentity(actor domain.Owner) error {
	if actor.IsZero() {
		return apperrors.Unauthorized("no wishlist identity available")
	}
	return nil
}

// lookupValid treats catalog failures as an invalid product and logs them.
func lookupValid(ctx context.Context, catalog Catalog, logger *slog.Logger, productID string) (domain.Product, bool) {
	p, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		logger.WarnContext(ctx, "catalog lookup failed, treating product as invalid",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return domain.Product{ID: productID}, false
	}
	return p, p.Valid()
}

// userFailure keeps typed AppErrors intact and hides any other error behind
// a short user-facing message. The cause stays available to errors.Is and
// to server-side logs.
func userFailure(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &apperrors.AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
