package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

// ProductSource looks up a single product.
type ProductSource interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// CachedCatalog memoizes product lookups in a size-bounded LRU with a TTL.
// Errors are never cached.
type CachedCatalog struct {
	source ProductSource
	cache  *expirable.LRU[string, domain.Product]
}

// NewCachedCatalog wraps source with an LRU of the given size and TTL.
func NewCachedCatalog(source ProductSource, size int, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		cache:  expirable.NewLRU[string, domain.Product](size, nil, ttl),
	}
}

// GetProduct returns the cached product or fetches it from the source.
func (c *CachedCatalog) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if p, ok := c.cache.Get(productID); ok {
		return p, nil
	}
	p, err := c.source.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	c.cache.Add(productID, p)
	return p, nil
}

// Evict drops a product so the next lookup refetches it.
func (c *CachedCatalog) Evict(productID string) {
	c.cache.Remove(productID)
}

// Len returns the number of cached products.
func (c *CachedCatalog) Len() int {
	return c.cache.Len()
}
