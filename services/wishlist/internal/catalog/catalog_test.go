package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

func testDoer() httpclient.Doer {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		MaxConnsPerHost: 10,
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const publishedProduct = `{"data":{
	"id":"p-42","name":"Trail Shoe","slug":"trail-shoe","status":"published",
	"base_price":5000,"currency":"USD",
	"variants":[
		{"id":"v-0","sku":"TS-0","name":"old","is_active":false},
		{"id":"v-1","sku":"TS-1","name":"42","price":4500,"is_active":true}
	]}}`

func TestGetProduct_Published(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/p-42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(publishedProduct))
	}))
	defer srv.Close()

	c := NewClient(testDoer(), srv.URL, "https://shop.example.com/", testLogger())
	p, err := c.GetProduct(context.Background(), "p-42")
	require.NoError(t, err)

	assert.True(t, p.Exists)
	assert.True(t, p.Visible)
	assert.True(t, p.Purchasable)
	assert.True(t, p.Valid())
	assert.Equal(t, "v-1", p.DefaultVariantID)
	assert.Equal(t, "TS-1", p.SKU)
	assert.Equal(t, "https://shop.example.com/products/trail-shoe", p.Permalink)
	require.True(t, p.Price.Valid)
	assert.True(t, decimal.RequireFromString("45.00").Equal(p.Price.Decimal))
}

func TestGetProduct_DraftIsNotVisible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"p-1","status":"draft","base_price":1000}}`))
	}))
	defer srv.Close()

	p, err := NewClient(testDoer(), srv.URL, "", testLogger()).GetProduct(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, p.Exists)
	assert.False(t, p.Visible)
	assert.False(t, p.Purchasable)
	assert.False(t, p.Valid())
}

func TestGetProduct_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"product not found"}}`))
	}))
	defer srv.Close()

	p, err := NewClient(testDoer(), srv.URL, "", testLogger()).GetProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", p.ID)
	assert.False(t, p.Exists)
	assert.False(t, p.Valid())
}

func TestGetProduct_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(testDoer(), srv.URL, "", testLogger()).GetProduct(context.Background(), "p-1")
	require.Error(t, err)
}

func TestInventoryClient_InStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/check", r.URL.Path)
		var req stockCheckRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.Equal(t, "v-1", req.Items[0].VariantID)
		available := req.Items[0].Quantity <= 3
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"all_available": available},
		})
	}))
	defer srv.Close()

	c := NewInventoryClient(testDoer(), srv.URL)
	ok, err := c.InStock(context.Background(), "p-1", "v-1", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.InStock(context.Background(), "p-1", "v-1", 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartClient_AddToCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/cart/items", r.URL.Path)
		assert.Equal(t, "account:7", r.Header.Get("X-User-ID"))
		var req addToCartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(4599), req.Price)
		assert.Equal(t, 2, req.Quantity)
		assert.Equal(t, "v-1", req.VariantID)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	product := domain.Product{
		ID:               "p-1",
		DefaultVariantID: "v-1",
		Price:            decimal.NewNullDecimal(decimal.RequireFromString("45.99")),
	}
	err := NewCartClient(testDoer(), srv.URL).AddToCart(context.Background(), domain.AccountOwner("7"), product, 2)
	require.NoError(t, err)
}

func TestCartClient_AddToCart_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"quantity too large"}}`))
	}))
	defer srv.Close()

	err := NewCartClient(testDoer(), srv.URL).AddToCart(context.Background(), domain.SessionOwner("abc"), domain.Product{ID: "p-1"}, 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCartClient_ZeroOwner(t *testing.T) {
	err := NewCartClient(testDoer(), "http://unused").AddToCart(context.Background(), domain.Owner{}, domain.Product{}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.Product{}, s.err
	}
	return domain.Product{ID: id, Exists: true, Visible: true}, nil
}

func TestCachedCatalog_HitsAndEvicts(t *testing.T) {
	src := &countingSource{}
	c := NewCachedCatalog(src, 10, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := c.GetProduct(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, "p-1", p.ID)
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, c.Len())

	c.Evict("p-1")
	_, err := c.GetProduct(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedCatalog_DoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("product service down")}
	c := NewCachedCatalog(src, 10, time.Minute)

	_, err := c.GetProduct(context.Background(), "p-1")
	require.Error(t, err)
	_, err = c.GetProduct(context.Background(), "p-1")
	require.Error(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, "45.99", CentsToDecimal(4599).StringFixed(2))
	assert.Equal(t, int64(4600), DecimalToCents(decimal.RequireFromString("45.995")))
}

func TestCircuitOpenFallback(t *testing.T) {
	resp, err := CircuitOpenFallback(context.Background(), errors.New("open"))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}
