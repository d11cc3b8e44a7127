package billing

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-billing-pos/internal/models"
)

// ReturnInput describes goods handed back against one bill. A nil Client copies the bill's.
type ReturnInput struct {
	OriginalBillNo string
	ReturnDate     string
	Client         *models.Client
	Items          []models.LineItem
	RoundOff       string
	PaymentMode    string
}

func toReturnItems(items []models.LineItem) []models.ReturnItem {
	out := make([]models.ReturnItem, len(items))
	for i, it := range items {
		out[i] = models.ReturnItem{LineItem: it}
	}
	return out
}

// rejectRepeatedLines allows each description once per return.
func rejectRepeatedLines(items []models.LineItem) error {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.Desc] {
			return newError(ErrInvalidReturn, "%s appears more than once in the return", it.Desc)
		}
		seen[it.Desc] = true
	}
	return nil
}

// matchReturnLines pairs every returned description with exactly one bill line, caps the
// quantity at what that line sold and takes the line's category so stock goes back to the
// item that was sold.
func matchReturnLines(bill *models.Bill, items []models.LineItem) ([]models.LineItem, error) {
	if err := rejectRepeatedLines(items); err != nil {
		return nil, err
	}

	lines := make(map[string][]models.LineItem, len(bill.Items))
	for _, it := range bill.Items {
		lines[it.Desc] = append(lines[it.Desc], it.LineItem)
	}

	out := make([]models.LineItem, len(items))
	for i, it := range items {
		sold := lines[it.Desc]
		switch {
		case len(sold) == 0:
			return nil, newError(ErrInvalidReturn, "%s is not on bill %s", it.Desc, bill.BillNo)
		case len(sold) > 1:
			return nil, newError(ErrInvalidReturn, "%s is on more than one line of bill %s", it.Desc, bill.BillNo)
		}
		if it.Qty.GreaterThan(sold[0].Qty) {
			return nil, newError(ErrInvalidReturn, "cannot return %s of %s: only %s sold on bill %s",
				it.Qty.String(), it.Desc, sold[0].Qty.String(), bill.BillNo)
		}
		it.Category = sold[0].Category
		out[i] = it
	}
	return out, nil
}

// lookupBill resolves loose bill input inside tx.
func lookupBill(tx *gorm.DB, input string) (*models.Bill, error) {
	raw := strings.TrimSpace(input)
	bill, err := findBill(tx, raw)
	if err != nil || bill != nil {
		return bill, err
	}
	billNo, err := NormalizeBillNo(raw)
	if err != nil {
		return nil, err
	}
	return findBill(tx, billNo)
}

// CreateReturn stores the return, puts the goods back in stock and schedules the derived bill.
// A bill can have at most one return.
func (s *Service) CreateReturn(ctx context.Context, in ReturnInput) (*models.ReturnBill, error) {
	// 1. Validate input
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	totals, err := computeTotals(items, in.RoundOff)
	if err != nil {
		return nil, err
	}
	if in.ReturnDate == "" {
		in.ReturnDate = s.now().Format(DateLayout)
	}
	if err := validateDate("returnDate", in.ReturnDate); err != nil {
		return nil, err
	}
	if in.PaymentMode == "" {
		in.PaymentMode = DefaultReturnPaymentMode
	}

	var ret *models.ReturnBill
	err = s.mutate(ctx, func(tx *gorm.DB) error {
		// 2. The bill must exist and have no return yet
		bill, err := lookupBill(tx, in.OriginalBillNo)
		if err != nil {
			return err
		}
		if bill == nil {
			return notFound("bill", in.OriginalBillNo)
		}

		var count int64
		if err := tx.Model(&models.ReturnBill{}).
			Where("original_bill_no = ?", bill.BillNo).
			Count(&count).Error; err != nil {
			return wrap("check existing return", err)
		}
		if count > 0 {
			return newError(ErrAlreadyExists, "a return already exists for bill %s", bill.BillNo)
		}

		matched, err := matchReturnLines(bill, items)
		if err != nil {
			return err
		}

		returnID, err := ReturnIDFor(bill.BillNo)
		if err != nil {
			return err
		}

		client := bill.Client
		if in.Client != nil {
			client = *in.Client
		}

		// 3. Save and restock
		ret = &models.ReturnBill{
			ReturnID:       returnID,
			OriginalBillNo: bill.BillNo,
			ReturnDate:     in.ReturnDate,
			Client:         client,
			Items:          toReturnItems(matched),
			Totals:         totals,
			PaymentMode:    in.PaymentMode,
		}
		if err := tx.Create(ret).Error; err != nil {
			return wrap("create return", err)
		}
		if err := NewStockAdjuster(tx).ReturnCreated(matched); err != nil {
			return err
		}
		return EnqueueReconcile(tx, bill.BillNo, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Return created",
		zap.String("return_id", ret.ReturnID),
		zap.String("original_bill_no", ret.OriginalBillNo),
		zap.String("net_amount", ret.Totals.NetAmount))
	return ret, nil
}

// UpdateReturn reverses the stored return's restock, applies the new one and replaces its items.
func (s *Service) UpdateReturn(ctx context.Context, returnID string, in ReturnInput) (*models.ReturnBill, error) {
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	totals, err := computeTotals(items, in.RoundOff)
	if err != nil {
		return nil, err
	}
	if in.ReturnDate != "" {
		if err := validateDate("returnDate", in.ReturnDate); err != nil {
			return nil, err
		}
	}

	var ret models.ReturnBill
	err = s.mutate(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items", orderByID).
			Where("return_id = ?", returnID).
			First(&ret).Error; err != nil {
			if isNotFound(err) {
				return notFound("return", returnID)
			}
			return wrap("load return", err)
		}

		// the bill may have been deleted since; then there is nothing to check against
		bill, err := findBill(tx, ret.OriginalBillNo)
		if err != nil {
			return err
		}
		if bill != nil {
			if items, err = matchReturnLines(bill, items); err != nil {
				return err
			}
		} else if err := rejectRepeatedLines(items); err != nil {
			return err
		}

		if err := NewStockAdjuster(tx).ReturnUpdated(ret.LineItems(), items); err != nil {
			return err
		}

		if err := tx.Where("return_bill_id = ?", ret.ID).Delete(&models.ReturnItem{}).Error; err != nil {
			return wrap("clear return items", err)
		}

		if in.ReturnDate != "" {
			ret.ReturnDate = in.ReturnDate
		}
		if in.PaymentMode != "" {
			ret.PaymentMode = in.PaymentMode
		}
		if in.Client != nil {
			ret.Client = *in.Client
		}
		ret.Totals = totals
		ret.Items = toReturnItems(items)
		for i := range ret.Items {
			ret.Items[i].ReturnBillID = ret.ID
		}

		if err := tx.Omit("Items").Save(&ret).Error; err != nil {
			return wrap("save return", err)
		}
		if err := tx.Create(&ret.Items).Error; err != nil {
			return wrap("save return items", err)
		}
		return EnqueueReconcile(tx, ret.OriginalBillNo, s.now())
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// DeleteReturn takes the restocked goods back out and removes the return.
func (s *Service) DeleteReturn(ctx context.Context, returnID string) error {
	return s.mutate(ctx, func(tx *gorm.DB) error {
		var ret models.ReturnBill
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("return_id = ?", returnID).
			First(&ret).Error; err != nil {
			if isNotFound(err) {
				return notFound("return", returnID)
			}
			return wrap("load return", err)
		}

		if err := NewStockAdjuster(tx).ReturnDeleted(ret.LineItems()); err != nil {
			return err
		}
		if err := tx.Where("return_bill_id = ?", ret.ID).Delete(&models.ReturnItem{}).Error; err != nil {
			return wrap("delete return items", err)
		}
		if err := tx.Delete(&ret).Error; err != nil {
			return wrap("delete return", err)
		}
		return EnqueueReconcile(tx, ret.OriginalBillNo, s.now())
	})
}

// --- Reads ---

func (s *Service) RecentReturns(ctx context.Context) ([]models.ReturnBill, error) {
	return s.listReturns(ctx, recentLimit)
}

func (s *Service) AllReturns(ctx context.Context) ([]models.ReturnBill, error) {
	return s.listReturns(ctx, 0)
}

func (s *Service) listReturns(ctx context.Context, limit int) ([]models.ReturnBill, error) {
	var returns []models.ReturnBill
	q := s.db.WithContext(ctx).Preload("Items", orderByID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&returns).Error; err != nil {
		return nil, wrap("list returns", err)
	}
	return returns, nil
}

// CheckReturn returns the return filed against a bill, or nil when there is none.
func (s *Service) CheckReturn(ctx context.Context, input string) (*models.ReturnBill, error) {
	raw := strings.TrimSpace(input)
	candidates := []string{raw}
	if billNo, err := NormalizeBillNo(raw); err == nil && billNo != raw {
		candidates = append(candidates, billNo)
	}

	var returns []models.ReturnBill
	if err := s.db.WithContext(ctx).
		Preload("Items", orderByID).
		Where("original_bill_no IN ?", candidates).
		Limit(1).
		Find(&returns).Error; err != nil {
		return nil, wrap("check return", err)
	}
	if len(returns) == 0 {
		return nil, nil
	}
	return &returns[0], nil
}

// NextReturnID previews the id a return against billNo would get.
func (s *Service) NextReturnID(billNo string) (string, error) {
	normalized, err := NormalizeBillNo(billNo)
	if err != nil {
		return "", err
	}
	return ReturnIDFor(normalized)
}
