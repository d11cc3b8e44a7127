package database

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-billing-pos/internal/models"
)

// SalesReportResult holds the net takings for a date range
type SalesReportResult struct {
	BillTotal   decimal.Decimal
	ReturnTotal decimal.Decimal
	BillCount   int64
	ReturnCount int64
}

// Net is bill takings minus refunds.
func (r *SalesReportResult) Net() decimal.Decimal {
	return r.BillTotal.Sub(r.ReturnTotal)
}

// GetSalesReport sums bills dated in [from, to] and returns whose return date falls in the same
// range. Dates are YYYY-MM-DD strings, so lexical comparison is chronological.
func GetSalesReport(db *gorm.DB, from, to string) (*SalesReportResult, error) {
	var result SalesReportResult

	// 1. Bill net amounts
	var billNets []string
	if err := db.Model(&models.Bill{}).
		Where("date BETWEEN ? AND ?", from, to).
		Pluck("net_amount", &billNets).Error; err != nil {
		return nil, err
	}
	result.BillTotal = sumAmounts(billNets)
	result.BillCount = int64(len(billNets))

	// 2. Return net amounts
	var returnNets []string
	if err := db.Model(&models.ReturnBill{}).
		Where("return_date BETWEEN ? AND ?", from, to).
		Pluck("net_amount", &returnNets).Error; err != nil {
		return nil, err
	}
	result.ReturnTotal = sumAmounts(returnNets)
	result.ReturnCount = int64(len(returnNets))

	return &result, nil
}

// BillsBetween loads bills (with items) dated in [from, to], oldest first.
func BillsBetween(db *gorm.DB, from, to string) ([]models.Bill, error) {
	var bills []models.Bill
	err := db.Preload("Items").
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC, id ASC").
		Find(&bills).Error
	return bills, err
}

// ReturnsBetween loads returns (with items) whose return date is in [from, to].
func ReturnsBetween(db *gorm.DB, from, to string) ([]models.ReturnBill, error) {
	var returns []models.ReturnBill
	err := db.Preload("Items").
		Where("return_date BETWEEN ? AND ?", from, to).
		Order("return_date ASC, id ASC").
		Find(&returns).Error
	return returns, err
}

// unparsable totals count as zero; they only come from hand-edited rows
func sumAmounts(values []string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total
}
