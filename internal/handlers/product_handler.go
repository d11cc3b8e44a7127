package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-billing-pos/internal/billing"
)

type itemRequest struct {
	Name     string          `json:"name" binding:"required"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"qty"`
}

func (r itemRequest) input() billing.ItemInput {
	return billing.ItemInput{Name: r.Name, Unit: r.Unit, Price: r.Price, Quantity: r.Quantity}
}

type createCategoryRequest struct {
	Category string        `json:"category" binding:"required"`
	Items    []itemRequest `json:"items" binding:"dive"`
}

type addItemRequest struct {
	Category string `json:"category" binding:"required"`
	itemRequest
}

type updateItemRequest struct {
	Category string `json:"category" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Updates  struct {
		Name     *string          `json:"name"`
		Unit     *string          `json:"unit"`
		Price    *decimal.Decimal `json:"price"`
		Quantity *decimal.Decimal `json:"qty"`
	} `json:"updates"`
}

type priceUpdateRequest struct {
	Category string          `json:"category" binding:"required"`
	Desc     string          `json:"desc" binding:"required"`
	Rate     decimal.Decimal `json:"rate"`
}

// --- GET: List all categories with their items ---
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- GET: /api/products/search?q= ---
func (h *Handler) SearchItems(c *gin.Context) {
	matches, err := h.svc.SearchItems(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

// --- POST: Add a new category ---
func (h *Handler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	items := make([]billing.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.input()
	}

	product, err := h.svc.CreateCategory(c.Request.Context(), req.Category, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- POST: Add an item to a category (the category is created if missing) ---
func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), req.Category, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Item added successfully", "item": item})
}

// --- PUT: Update price, unit, stock or name of one item ---
// Only the fields present in "updates" change.
func (h *Handler) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	patch := billing.ItemPatch{
		Name:     req.Updates.Name,
		Unit:     req.Updates.Unit,
		Price:    req.Updates.Price,
		Quantity: req.Updates.Quantity,
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), req.Category, req.Name, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully", "item": item})
}

// --- PUT: Sync catalog prices with the rates typed on a bill ---
// Pairs that are not in the catalog are skipped.
func (h *Handler) BulkUpdatePrices(c *gin.Context) {
	var req []priceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updates := make([]billing.PriceUpdate, len(req))
	for i, u := range req {
		updates[i] = billing.PriceUpdate{Category: u.Category, Desc: u.Desc, Rate: u.Rate}
	}

	n, err := h.svc.BulkUpdatePrices(c.Request.Context(), updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prices updated successfully", "updated": n})
}

// --- GET: /api/products/valuation ---
// Stock value per category and in total.
func (h *Handler) GetStockValuation(c *gin.Context) {
	valuation, err := h.svc.StockValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}
