package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/database"
	"go-billing-pos/internal/export"
)

// periodRequest selects a day ("2024-05-01"), ISO week ("2024-W18") or month ("2024-05").
type periodRequest struct {
	Type  string `json:"type" binding:"required,oneof=day week month"`
	Value string `json:"value" binding:"required"`
}

type exportQuery struct {
	From string `form:"from" binding:"required,isodate"`
	To   string `form:"to" binding:"required,isodate"`
}

// --- GET: /api/bills/stats ---
// Net takings for today, this ISO week and this month.
func (h *Handler) GetStats(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// --- POST: /api/bills/custom-stats ---
func (h *Handler) GetCustomStats(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	total, err := h.svc.CustomStats(c.Request.Context(), billing.PeriodType(req.Type), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, total)
}

// --- POST: /api/bills/product-stats ---
func (h *Handler) GetProductStats(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	stats, err := h.svc.ProductStats(c.Request.Context(), billing.PeriodType(req.Type), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- GET: /api/bills/export?from=&to= ---
// Bills and returns dated in the range as an XLSX workbook.
func (h *Handler) ExportBills(c *gin.Context) {
	// 1. Validate the date range
	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	if q.From > q.To {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to", "code": billing.ErrInvalidInput.Code})
		return
	}

	// 2. Load both document kinds
	db := h.db.WithContext(c.Request.Context())
	bills, err := database.BillsBetween(db, q.From, q.To)
	if err != nil {
		respondError(c, err)
		return
	}
	returns, err := database.ReturnsBetween(db, q.From, q.To)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. Render before writing headers so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := export.Write(&buf, bills, returns); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(q.From, q.To)+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
