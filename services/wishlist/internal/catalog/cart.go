package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/utafrali/EcommerceGo/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

const cartServiceName = "cart-service"

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartClient adds products to the owner's cart in the cart service.
type CartClient struct {
	doer    httpclient.Doer
	baseURL string
}

// NewCartClient creates a cart service client.
func NewCartClient(doer httpclient.Doer, baseURL string) *CartClient {
	return &CartClient{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// AddToCart puts qty units of the product's default variant into the cart
// keyed by the owner.
func (c *CartClient) AddToCart(ctx context.Context, owner domain.Owner, product domain.Product, qty int) error {
	if owner.IsZero() {
		return domain.ErrInvalidOwner
	}
	body, err := json.Marshal(addToCartRequest{
		ProductID: product.ID,
		VariantID: product.DefaultVariantID,
		Name:      product.Name,
		SKU:       product.SKU,
		Price:     DecimalToCents(product.Price.Decimal),
		Quantity:  qty,
	})
	if err != nil {
		return fmt.Errorf("marshal add to cart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/cart/items", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create add to cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", owner.Key())

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call %s: %w", cartServiceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, cartServiceName)
	}
	_ = resp.Body.Close()
	return nil
}
