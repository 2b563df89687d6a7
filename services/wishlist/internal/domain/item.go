package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DuplicateItemMessage is the user-facing reason for a duplicate add.
const DuplicateItemMessage = "product is already in your wishlist"

// Item is one (list, product) membership row.
type Item struct {
	ID            string              `json:"id"`
	ListID        string              `json:"list_id"`
	ProductID     string              `json:"product_id"`
	PriceSnapshot decimal.NullDecimal `json:"price_snapshot"`
	NotifiedPrice decimal.NullDecimal `json:"-"`
	AddedAt       time.Time           `json:"added_at"`
}

// OwnedItem is an item joined with the owner of its list. The price-drop
// scanner iterates these.
type OwnedItem struct {
	Item
	Owner Owner
}

// PopularProduct is a cross-owner membership count for one product.
type PopularProduct struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
}

// ItemView is an item decorated with live catalog data for display.
type ItemView struct {
	Item
	Name         string              `json:"name"`
	Permalink    string              `json:"permalink,omitempty"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	Purchasable  bool                `json:"purchasable"`
}
