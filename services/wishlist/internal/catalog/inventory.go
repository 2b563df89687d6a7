package catalog

import (
	"context"
	"strings"

	"github.com/utafrali/EcommerceGo/pkg/httpclient"
)

const inventoryServiceName = "inventory-service"

type stockCheckItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type stockCheckRequest struct {
	Items []stockCheckItem `json:"items"`
}

type stockCheckResponse struct {
	Data struct {
		AllAvailable bool `json:"all_available"`
	} `json:"data"`
}

// InventoryClient answers stock questions against the inventory service.
type InventoryClient struct {
	doer    httpclient.Doer
	baseURL string
}

// NewInventoryClient creates an inventory service client.
func NewInventoryClient(doer httpclient.Doer, baseURL string) *InventoryClient {
	return &InventoryClient{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// InStock reports whether qty units of the variant are available.
func (c *InventoryClient) InStock(ctx context.Context, productID, variantID string, qty int) (bool, error) {
	req := stockCheckRequest{Items: []stockCheckItem{{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	}}}
	var resp stockCheckResponse
	if err := httpclient.PostJSON(ctx, c.doer, c.baseURL+"/api/v1/inventory/check", inventoryServiceName, req, &resp); err != nil {
		return false, err
	}
	return resp.Data.AllAvailable, nil
}
