package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/models"
	"go-billing-pos/internal/testutil"
)

func TestCatalogAdmin(t *testing.T) {
	env := newTestEnv(t)

	// 1. create a category with one item
	w := env.do(t, env.admin, http.MethodPost, "/api/products", map[string]any{
		"category": "Hardware",
		"items":    []map[string]any{{"name": "Wire", "unit": "metre", "price": "5", "qty": "10"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, env.admin, http.MethodPost, "/api/products", map[string]any{"category": "Hardware"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 2. add another item, and refuse a duplicate name
	w = env.do(t, env.admin, http.MethodPost, "/api/products/item/add", map[string]any{
		"category": "Hardware", "name": "Switch", "price": "40", "qty": "3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, env.admin, http.MethodPost, "/api/products/item/add", map[string]any{
		"category": "Hardware", "name": "Switch", "price": "40", "qty": "3",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 3. patch only the price
	w = env.do(t, env.admin, http.MethodPut, "/api/products/item/update", map[string]any{
		"category": "Hardware", "name": "Switch", "updates": map[string]any{"price": "45"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Item models.ProductItem `json:"item"`
	}
	testutil.DecodeJSON(t, w, &updated)
	assert.True(t, testutil.D("45").Equal(updated.Item.Price))
	assert.True(t, testutil.D("3").Equal(updated.Item.Quantity))

	w = env.do(t, env.admin, http.MethodPut, "/api/products/item/update", map[string]any{
		"category": "Hardware", "name": "Fan", "updates": map[string]any{"price": "45"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 4. list
	w = env.do(t, env.cashier, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	testutil.DecodeJSON(t, w, &products)
	require.Len(t, products, 1)
	assert.Len(t, products[0].Items, 2)
}

func TestCatalogEdits_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.cashier, http.MethodPost, "/api/products", map[string]any{"category": "Hardware"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, env.cashier, http.MethodPost, "/api/products/item/add", map[string]any{"category": "Hardware", "name": "Wire"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBulkUpdatePrices(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedItem(t, env.db, "Hardware", "Wire", "10", "5")
	testutil.SeedItem(t, env.db, "Hardware", "Switch", "3", "40")

	w := env.do(t, env.cashier, http.MethodPut, "/api/products/bulk-update", []map[string]any{
		{"category": "Hardware", "desc": "Wire", "rate": "6"},
		{"category": "Hardware", "desc": "Fan", "rate": "900"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Updated int `json:"updated"`
	}
	testutil.DecodeJSON(t, w, &resp)
	assert.Equal(t, 1, resp.Updated)

	w = env.do(t, env.cashier, http.MethodPut, "/api/products/bulk-update", []map[string]any{{"category": "Hardware"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var bad map[string]string
	testutil.DecodeJSON(t, w, &bad)
	assert.Equal(t, "desc is required", bad["error"])
}

func TestValuationAndSearch(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedItem(t, env.db, "Hardware", "Wire", "10", "5")
	testutil.SeedItem(t, env.db, "Paint", "White 1L", "2", "250")

	w := env.do(t, env.cashier, http.MethodGet, "/api/products/valuation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var valuation billing.Valuation
	testutil.DecodeJSON(t, w, &valuation)
	assert.True(t, testutil.D("550").Equal(valuation.Total))
	assert.Len(t, valuation.Categories, 2)

	w = env.do(t, env.cashier, http.MethodGet, "/api/products/search?q=wir", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var matches []billing.ItemMatch
	testutil.DecodeJSON(t, w, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, "Wire", matches[0].Name)
}
