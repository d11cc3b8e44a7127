package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/models"
)

// billFields is what the counter UI sends for a bill. Amounts and totals are recomputed; only the
// round-off is taken from totals. An update without a client keeps the stored one.
type billFields struct {
	Client      *models.Client    `json:"client"`
	Items       []models.LineItem `json:"items" binding:"required"`
	Totals      models.Totals     `json:"totals"`
	PaymentMode string            `json:"paymentMode"`
}

type saveBillRequest struct {
	Date string `json:"date" binding:"required,isodate"`
	billFields
}

type updateBillRequest struct {
	Date string `json:"date" binding:"omitempty,isodate"`
	billFields
}

func (b billFields) input(date string) billing.BillInput {
	return billing.BillInput{
		Date:        date,
		Client:      b.Client,
		Items:       b.Items,
		RoundOff:    b.Totals.RoundOff,
		PaymentMode: b.PaymentMode,
	}
}

// --- GET: /api/bills ---
func (h *Handler) GetRecentBills(c *gin.Context) {
	bills, err := h.svc.RecentBills(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/bills/all ---
func (h *Handler) GetAllBills(c *gin.Context) {
	bills, err := h.svc.AllBills(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/bills/find/:billNo ---
// Accepts loose input like "7" or "nb7".
func (h *Handler) FindBill(c *gin.Context) {
	bill, err := h.svc.FindBill(c.Request.Context(), c.Param("billNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// --- GET: /api/bills/next-number ---
func (h *Handler) NextBillNo(c *gin.Context) {
	next, err := h.svc.NextBillNo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextBillNo": next})
}

// --- POST: /api/bills/save ---
func (h *Handler) SaveBill(c *gin.Context) {
	// 1. Validate Input JSON
	var req saveBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 2. Deduct stock and store the bill in one transaction
	bill, err := h.svc.CreateBill(c.Request.Context(), req.input(req.Date))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bill saved successfully",
		"id":      bill.ID,
		"billNo":  bill.BillNo,
		"bill":    bill,
	})
}

// --- PUT: /api/bills/update/:billNo ---
func (h *Handler) UpdateBill(c *gin.Context) {
	var req updateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	bill, err := h.svc.UpdateBill(c.Request.Context(), c.Param("billNo"), req.input(req.Date))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill updated successfully", "bill": bill})
}

// --- DELETE: /api/bills/delete/:billNo ---
func (h *Handler) DeleteBill(c *gin.Context) {
	if err := h.svc.DeleteBill(c.Request.Context(), c.Param("billNo")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}
