package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-billing-pos/internal/models"
)

// DateLayout is the storage format of every business date.
const DateLayout = "2006-01-02"

// Reconciler keeps the UpdatedBill of one original bill in line with the bill and its return.
type Reconciler struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewReconciler(db *gorm.DB, log *zap.Logger, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{db: db, log: log.Named("reconcile"), now: now}
}

// Reconcile recomputes (or removes) the UpdatedBill for billNo. Running it twice without an
// intervening mutation leaves the same result.
func (r *Reconciler) Reconcile(ctx context.Context, billNo string) error {
	// 1. Identifiers that are not sale numbers cannot have a derived bill
	if _, err := ParseBillNo(billNo); err != nil {
		r.log.Warn("Skipping reconcile for unparsable bill number",
			zap.String("bill_no", billNo), zap.Error(err))
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 2. Load both parents
		bill, err := findBill(tx, billNo)
		if err != nil {
			return err
		}
		ret, err := findReturnForBill(tx, billNo)
		if err != nil {
			return err
		}

		// 3. A missing parent removes the derived bill
		if bill == nil || ret == nil {
			if err := deleteUpdatedBill(tx, billNo); err != nil {
				return err
			}
			r.log.Debug("Updated bill removed or not created", zap.String("bill_no", billNo))
			return nil
		}

		// 4. Compute and upsert
		derived, err := DeriveUpdatedBill(bill, ret, r.now().Format(DateLayout))
		if err != nil {
			return err
		}
		if err := upsertUpdatedBill(tx, derived); err != nil {
			return err
		}
		r.log.Debug("Updated bill generated",
			zap.String("updated_bill_id", derived.UpdatedBillID),
			zap.String("net_amount", derived.Totals.NetAmount),
			zap.Int("items", len(derived.Items)))
		return nil
	})
}

// DeriveUpdatedBill subtracts returned quantities (matched by description) from the bill and
// keeps the lines with something left. A fully returned bill yields no items and zero totals.
func DeriveUpdatedBill(bill *models.Bill, ret *models.ReturnBill, date string) (*models.UpdatedBill, error) {
	updatedID, err := UpdatedIDFor(bill.BillNo)
	if err != nil {
		return nil, err
	}

	returned := make(map[string]decimal.Decimal, len(ret.Items))
	for _, it := range ret.Items {
		if _, seen := returned[it.Desc]; !seen {
			returned[it.Desc] = it.Qty
		}
	}

	items := make([]models.UpdatedBillItem, 0, len(bill.Items))
	subTotal := decimal.Zero
	for _, it := range bill.Items {
		remaining := it.Qty.Sub(returned[it.Desc])
		if !remaining.IsPositive() {
			continue
		}
		line := it.LineItem
		line.Qty = remaining
		line.Amount = remaining.Mul(it.Rate)
		subTotal = subTotal.Add(line.Amount)
		items = append(items, models.UpdatedBillItem{LineItem: line})
	}

	return &models.UpdatedBill{
		Kind:           models.KindUpdated,
		UpdatedBillID:  updatedID,
		OriginalBillNo: bill.BillNo,
		ReturnID:       ret.ReturnID,
		Date:           date,
		Client:         bill.Client,
		Items:          items,
		Totals: models.Totals{
			SubTotal:  subTotal.StringFixed(2),
			RoundOff:  "0.00",
			NetAmount: subTotal.StringFixed(2),
		},
	}, nil
}

func findBill(tx *gorm.DB, billNo string) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Preload("Items", orderByID).Where("bill_no = ?", billNo).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bill %s: %w", billNo, err)
	}
	return &bill, nil
}

// findReturnForBill matches on originalBillNo, falling back to the derived return id.
func findReturnForBill(tx *gorm.DB, billNo string) (*models.ReturnBill, error) {
	returnID, err := ReturnIDFor(billNo)
	if err != nil {
		return nil, err
	}

	var ret models.ReturnBill
	err = tx.Preload("Items", orderByID).
		Where("original_bill_no = ? OR return_id = ?", billNo, returnID).
		Order("id ASC").
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load return for %s: %w", billNo, err)
	}
	return &ret, nil
}

func deleteUpdatedBill(tx *gorm.DB, billNo string) error {
	var existing models.UpdatedBill
	err := tx.Where("original_bill_no = ?", billNo).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load updated bill %s: %w", billNo, err)
	}
	if err := tx.Where("derived_bill_id = ?", existing.ID).Delete(&models.UpdatedBillItem{}).Error; err != nil {
		return fmt.Errorf("delete updated bill items %s: %w", billNo, err)
	}
	if err := tx.Delete(&existing).Error; err != nil {
		return fmt.Errorf("delete updated bill %s: %w", billNo, err)
	}
	return nil
}

func upsertUpdatedBill(tx *gorm.DB, derived *models.UpdatedBill) error {
	var existing models.UpdatedBill
	err := tx.Where("original_bill_no = ?", derived.OriginalBillNo).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(derived).Error; err != nil {
			return fmt.Errorf("create updated bill %s: %w", derived.UpdatedBillID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load updated bill %s: %w", derived.OriginalBillNo, err)
	}

	// items are replaced wholesale
	if err := tx.Where("derived_bill_id = ?", existing.ID).Delete(&models.UpdatedBillItem{}).Error; err != nil {
		return fmt.Errorf("clear updated bill items %s: %w", derived.UpdatedBillID, err)
	}

	derived.ID = existing.ID
	derived.CreatedAt = existing.CreatedAt
	if err := tx.Omit("Items").Save(derived).Error; err != nil {
		return fmt.Errorf("save updated bill %s: %w", derived.UpdatedBillID, err)
	}
	for i := range derived.Items {
		derived.Items[i].DerivedBillID = existing.ID
	}
	if len(derived.Items) > 0 {
		if err := tx.Create(&derived.Items).Error; err != nil {
			return fmt.Errorf("save updated bill items %s: %w", derived.UpdatedBillID, err)
		}
	}
	return nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
