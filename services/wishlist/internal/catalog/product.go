package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

const productServiceName = "product-service"

// productStatusPublished is the only status shoppers can see.
const productStatusPublished = "published"

type productVariant struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Price    *int64 `json:"price,omitempty"`
	IsActive bool   `json:"is_active"`
}

type productDetail struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Status    string           `json:"status"`
	BasePrice int64            `json:"base_price"`
	Currency  string           `json:"currency"`
	Variants  []productVariant `json:"variants"`
}

type productEnvelope struct {
	Data productDetail `json:"data"`
}

// Client looks products up in the product service.
type Client struct {
	doer          httpclient.Doer
	baseURL       string
	storefrontURL string
	logger        *slog.Logger
}

// NewClient creates a product service client. storefrontURL is used to
// build shopper-facing permalinks.
func NewClient(doer httpclient.Doer, baseURL, storefrontURL string, logger *slog.Logger) *Client {
	return &Client{
		doer:          doer,
		baseURL:       strings.TrimRight(baseURL, "/"),
		storefrontURL: strings.TrimRight(storefrontURL, "/"),
		logger:        logger,
	}
}

// GetProduct fetches a product. A 404 yields Product{Exists: false} and no
// error; any other failure is returned so callers can treat the product as
// unavailable.
func (c *Client) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s request: %w", productServiceName, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		c.logger.DebugContext(ctx, "product not found in catalog", slog.String("product_id", productID))
		return domain.Product{ID: productID}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Product{}, httpclient.ParseResponseError(resp, productServiceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var env productEnvelope
	if err := decodeJSON(resp, &env); err != nil {
		return domain.Product{}, fmt.Errorf("decode %s response: %w", productServiceName, err)
	}
	return c.toDomain(env.Data), nil
}

func (c *Client) toDomain(d productDetail) domain.Product {
	p := domain.Product{
		ID:       d.ID,
		Exists:   true,
		Visible:  d.Status == productStatusPublished,
		Currency: d.Currency,
		Name:     d.Name,
	}
	if d.Slug != "" {
		p.Permalink = c.storefrontURL + "/products/" + d.Slug
	}

	cents := d.BasePrice
	hasActiveVariant := len(d.Variants) == 0
	for _, v := range d.Variants {
		if !v.IsActive {
			continue
		}
		hasActiveVariant = true
		p.DefaultVariantID = v.ID
		p.SKU = v.SKU
		if v.Price != nil {
			cents = *v.Price
		}
		break
	}
	if cents > 0 {
		p.Price = decimal.NewNullDecimal(CentsToDecimal(cents))
	}
	p.Purchasable = p.Visible && hasActiveVariant && p.Price.Valid
	return p
}

// CentsToDecimal converts minor units to a decimal amount.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts a decimal amount to minor units, rounding half up.
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
