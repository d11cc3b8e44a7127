package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"go-billing-pos/internal/models"
)

const (
	BillsSheet   = "Bills"
	ReturnsSheet = "Returns"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	billHeadings   = []any{"Bill No", "Date", "Client", "Mobile", "Category", "Item", "Qty", "Unit", "Rate", "Amount", "Net Amount", "Payment"}
	returnHeadings = []any{"Return ID", "Bill No", "Return Date", "Client", "Mobile", "Category", "Item", "Qty", "Unit", "Rate", "Amount", "Net Amount", "Payment"}
)

// Workbook renders bills and returns as one row per line item, in two sheets.
func Workbook(bills []models.Bill, returns []models.ReturnBill) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", BillsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ReturnsSheet); err != nil {
		return nil, err
	}

	// 1. Headers
	if err := f.SetSheetRow(BillsSheet, "A1", &billHeadings); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ReturnsSheet, "A1", &returnHeadings); err != nil {
		return nil, err
	}

	// 2. Bills
	row := 2
	for _, b := range bills {
		for _, it := range b.Items {
			values := []any{
				b.BillNo, b.Date, b.Client.Name, b.Client.Mobile,
				it.Category, it.Desc, it.Qty.InexactFloat64(), it.Unit,
				it.Rate.InexactFloat64(), it.Amount.InexactFloat64(),
				b.Totals.NetAmount, b.PaymentMode,
			}
			if err := setRow(f, BillsSheet, row, values); err != nil {
				return nil, err
			}
			row++
		}
	}

	// 3. Returns
	row = 2
	for _, r := range returns {
		for _, it := range r.Items {
			values := []any{
				r.ReturnID, r.OriginalBillNo, r.ReturnDate, r.Client.Name, r.Client.Mobile,
				it.Category, it.Desc, it.Qty.InexactFloat64(), it.Unit,
				it.Rate.InexactFloat64(), it.Amount.InexactFloat64(),
				r.Totals.NetAmount, r.PaymentMode,
			}
			if err := setRow(f, ReturnsSheet, row, values); err != nil {
				return nil, err
			}
			row++
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, bills []models.Bill, returns []models.ReturnBill) error {
	f, err := Workbook(bills, returns)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename names an export for the given date range.
func Filename(from, to string) string {
	return fmt.Sprintf("billing_%s_to_%s.xlsx", from, to)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
