package domain

import "github.com/shopspring/decimal"

// Product is the catalog's view of a wishlisted product.
type Product struct {
	ID               string
	Exists           bool
	Visible          bool
	Purchasable      bool
	Price            decimal.NullDecimal
	Currency         string
	Name             string
	Permalink        string
	DefaultVariantID string
	SKU              string
}

// Valid reports whether the product may be added to a wishlist and counted
// in listings: it must exist and be visible.
func (p Product) Valid() bool {
	return p.Exists && p.Visible
}
