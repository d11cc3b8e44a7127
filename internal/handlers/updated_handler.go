package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/logger"
)

// --- GET: /api/updated ---
func (h *Handler) GetRecentUpdatedBills(c *gin.Context) {
	bills, err := h.svc.RecentUpdatedBills(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/updated/all ---
func (h *Handler) GetAllUpdatedBills(c *gin.Context) {
	bills, err := h.svc.AllUpdatedBills(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bills)
}

// --- GET: /api/updated/find/:billNo ---
func (h *Handler) FindUpdatedBill(c *gin.Context) {
	billNo, err := billing.NormalizeBillNo(c.Param("billNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	bill, err := h.svc.UpdatedBillFor(c.Request.Context(), billNo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// --- GET: /api/updated/failures ---
// Bills whose updated copy could not be rebuilt after every retry.
func (h *Handler) GetReconcileFailures(c *gin.Context) {
	jobs, err := h.queue.Failures(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// --- POST: /api/updated/reconcile/:billNo ---
func (h *Handler) RetryReconcile(c *gin.Context) {
	billNo, err := billing.NormalizeBillNo(c.Param("billNo"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.queue.Retry(c.Request.Context(), billNo); err != nil {
		logger.FromGin(c).Warn("Manual reconcile failed", zap.String("bill_no", billNo), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Reconcile failed, it will be retried", "billNo": billNo})
		return
	}

	bill, err := h.svc.UpdatedBillFor(c.Request.Context(), billNo)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Updated bill rebuilt", "updatedBill": bill})
	case billing.Code(err) == billing.ErrNotFound.Code:
		c.JSON(http.StatusOK, gin.H{"message": "No return on this bill, nothing to rebuild", "updatedBill": nil})
	default:
		respondError(c, err)
	}
}
