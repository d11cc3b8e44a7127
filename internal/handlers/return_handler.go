package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/models"
)

type returnFields struct {
	Client      *models.Client    `json:"client"`
	Items       []models.LineItem `json:"items" binding:"required"`
	Totals      models.Totals     `json:"totals"`
	PaymentMode string            `json:"paymentMode"`
}

type saveReturnRequest struct {
	OriginalBillNo string `json:"originalBillNo" binding:"required"`
	ReturnDate     string `json:"returnDate" binding:"omitempty,isodate"`
	returnFields
}

type updateReturnRequest struct {
	ReturnDate string `json:"returnDate" binding:"omitempty,isodate"`
	returnFields
}

func (b returnFields) input(billNo, date string) billing.ReturnInput {
	return billing.ReturnInput{
		OriginalBillNo: billNo,
		ReturnDate:     date,
		Client:         b.Client,
		Items:          b.Items,
		RoundOff:       b.Totals.RoundOff,
		PaymentMode:    b.PaymentMode,
	}
}

// --- GET: /api/returns ---
func (h *Handler) GetRecentReturns(c *gin.Context) {
	returns, err := h.svc.RecentReturns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, returns)
}

// --- GET: /api/returns/all ---
func (h *Handler) GetAllReturns(c *gin.Context) {
	returns, err := h.svc.AllReturns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, returns)
}

// --- GET: /api/returns/check/:billNo ---
func (h *Handler) CheckReturn(c *gin.Context) {
	ret, err := h.svc.CheckReturn(c.Request.Context(), c.Param("billNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	if ret == nil {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true, "returnBill": ret})
}

// --- GET: /api/returns/next-number/:billNo ---
func (h *Handler) NextReturnID(c *gin.Context) {
	id, err := h.svc.NextReturnID(c.Param("billNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextReturnId": id})
}

// --- POST: /api/returns/save ---
func (h *Handler) SaveReturn(c *gin.Context) {
	var req saveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ret, err := h.svc.CreateReturn(c.Request.Context(), req.input(req.OriginalBillNo, req.ReturnDate))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Return saved successfully",
		"id":       ret.ID,
		"returnId": ret.ReturnID,
		"return":   ret,
	})
}

// --- PUT: /api/returns/update/:returnId ---
func (h *Handler) UpdateReturn(c *gin.Context) {
	var req updateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ret, err := h.svc.UpdateReturn(c.Request.Context(), c.Param("returnId"), req.input("", req.ReturnDate))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Return updated successfully", "return": ret})
}

// --- DELETE: /api/returns/delete/:returnId ---
func (h *Handler) DeleteReturn(c *gin.Context) {
	if err := h.svc.DeleteReturn(c.Request.Context(), c.Param("returnId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Return deleted successfully"})
}
