package billing

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-billing-pos/internal/models"
)

const billCounterID = "billNo"

// BillInput is the editable part of a bill. Amounts and totals are computed server side.
// On update a nil Client keeps the stored one.
type BillInput struct {
	Date        string
	Client      *models.Client
	Items       []models.LineItem
	RoundOff    string
	PaymentMode string
}

func (s *Service) prepareBill(in BillInput) ([]models.LineItem, models.Totals, error) {
	items, err := normalizeItems(in.Items)
	if err != nil {
		return nil, models.Totals{}, err
	}
	totals, err := computeTotals(items, in.RoundOff)
	if err != nil {
		return nil, models.Totals{}, err
	}
	return items, totals, nil
}

func toBillItems(items []models.LineItem) []models.BillItem {
	out := make([]models.BillItem, len(items))
	for i, it := range items {
		out[i] = models.BillItem{LineItem: it}
	}
	return out
}

// CreateBill validates stock, deducts it, assigns the next bill number and stores the bill,
// all in one transaction. Nothing is written when any line is short.
func (s *Service) CreateBill(ctx context.Context, in BillInput) (*models.Bill, error) {
	// 1. Validate input
	items, totals, err := s.prepareBill(in)
	if err != nil {
		return nil, err
	}
	if in.Date == "" {
		in.Date = s.now().Format(DateLayout)
	}
	if err := validateDate("date", in.Date); err != nil {
		return nil, err
	}
	if in.PaymentMode == "" {
		in.PaymentMode = DefaultBillPaymentMode
	}

	var client models.Client
	if in.Client != nil {
		client = *in.Client
	}

	bill := &models.Bill{
		Date:        in.Date,
		Client:      client,
		Items:       toBillItems(items),
		Totals:      totals,
		PaymentMode: in.PaymentMode,
	}

	err = s.mutate(ctx, func(tx *gorm.DB) error {
		// 2. Check and deduct stock
		if err := NewStockAdjuster(tx).BillCreated(items); err != nil {
			return err
		}

		// 3. Assign number under the counter row lock
		n, err := nextBillNumber(tx)
		if err != nil {
			return err
		}
		bill.BillNo = FormatBillNo(n)

		// 4. Save
		if err := tx.Create(bill).Error; err != nil {
			return wrap("create bill", err)
		}
		return EnqueueReconcile(tx, bill.BillNo, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Bill created",
		zap.String("bill_no", bill.BillNo),
		zap.String("net_amount", bill.Totals.NetAmount),
		zap.Int("items", len(bill.Items)))
	return bill, nil
}

// UpdateBill replaces items, totals and header fields of an existing bill. The bill number and
// creation time never change.
func (s *Service) UpdateBill(ctx context.Context, billNo string, in BillInput) (*models.Bill, error) {
	items, totals, err := s.prepareBill(in)
	if err != nil {
		return nil, err
	}
	if in.Date != "" {
		if err := validateDate("date", in.Date); err != nil {
			return nil, err
		}
	}

	var bill models.Bill
	err = s.mutate(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items", orderByID).
			Where("bill_no = ?", billNo).
			First(&bill).Error; err != nil {
			if isNotFound(err) {
				return notFound("bill", billNo)
			}
			return wrap("load bill", err)
		}

		if err := NewStockAdjuster(tx).BillUpdated(bill.LineItems(), items); err != nil {
			return err
		}

		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
			return wrap("clear bill items", err)
		}

		if in.Date != "" {
			bill.Date = in.Date
		}
		if in.PaymentMode != "" {
			bill.PaymentMode = in.PaymentMode
		}
		if in.Client != nil {
			bill.Client = *in.Client
		}
		bill.Totals = totals
		bill.Items = toBillItems(items)
		for i := range bill.Items {
			bill.Items[i].BillID = bill.ID
		}

		if err := tx.Omit("Items").Save(&bill).Error; err != nil {
			return wrap("save bill", err)
		}
		if err := tx.Create(&bill.Items).Error; err != nil {
			return wrap("save bill items", err)
		}
		return EnqueueReconcile(tx, bill.BillNo, s.now())
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// DeleteBill restores the bill's stock and removes it. A return against it is left in place;
// the derived bill disappears on the next reconcile.
func (s *Service) DeleteBill(ctx context.Context, billNo string) error {
	return s.mutate(ctx, func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("bill_no = ?", billNo).
			First(&bill).Error; err != nil {
			if isNotFound(err) {
				return notFound("bill", billNo)
			}
			return wrap("load bill", err)
		}

		if err := NewStockAdjuster(tx).BillDeleted(bill.LineItems()); err != nil {
			return err
		}
		if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
			return wrap("delete bill items", err)
		}
		if err := tx.Delete(&bill).Error; err != nil {
			return wrap("delete bill", err)
		}
		return EnqueueReconcile(tx, bill.BillNo, s.now())
	})
}

// --- Reads ---

func (s *Service) RecentBills(ctx context.Context) ([]models.Bill, error) {
	return s.listBills(ctx, recentLimit)
}

func (s *Service) AllBills(ctx context.Context) ([]models.Bill, error) {
	return s.listBills(ctx, 0)
}

func (s *Service) listBills(ctx context.Context, limit int) ([]models.Bill, error) {
	var bills []models.Bill
	q := s.db.WithContext(ctx).Preload("Items", orderByID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&bills).Error; err != nil {
		return nil, wrap("list bills", err)
	}
	return bills, nil
}

// FindBill looks a bill up by its exact number first, then by the normalized form of loose
// input such as "7" or "nb7".
func (s *Service) FindBill(ctx context.Context, input string) (*models.Bill, error) {
	raw := strings.TrimSpace(input)
	bill, err := findBill(s.db.WithContext(ctx), raw)
	if err != nil {
		return nil, err
	}
	if bill != nil {
		return bill, nil
	}

	billNo, err := NormalizeBillNo(raw)
	if err != nil {
		return nil, notFound("bill", raw)
	}
	bill, err = findBill(s.db.WithContext(ctx), billNo)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, notFound("bill", billNo)
	}
	return bill, nil
}

// NextBillNo previews the number the next bill will get. It takes no lock, so a concurrent
// save can still claim it first.
func (s *Service) NextBillNo(ctx context.Context) (string, error) {
	db := s.db.WithContext(ctx)

	var counter models.Counter
	err := db.Where("id = ?", billCounterID).First(&counter).Error
	if err != nil && !isNotFound(err) {
		return "", wrap("load counter", err)
	}
	highest, err := highestBillNumber(db)
	if err != nil {
		return "", err
	}
	return FormatBillNo(max(counter.Seq, highest) + 1), nil
}

// nextBillNumber claims max(counter, highest existing) + 1 and stores it in the counter row,
// which stays locked until the transaction ends.
func nextBillNumber(tx *gorm.DB) (int64, error) {
	seed := models.Counter{ID: billCounterID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, wrap("init counter", err)
	}

	var counter models.Counter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", billCounterID).
		First(&counter).Error; err != nil {
		return 0, wrap("lock counter", err)
	}

	highest, err := highestBillNumber(tx)
	if err != nil {
		return 0, err
	}

	next := max(counter.Seq, highest) + 1
	if err := tx.Model(&models.Counter{}).
		Where("id = ?", billCounterID).
		Update("seq", next).Error; err != nil {
		return 0, wrap("advance counter", err)
	}
	return next, nil
}

// highestBillNumber returns the largest NB number on file, or 0. Longer numbers sort first so
// NB1000 beats NB999.
func highestBillNumber(db *gorm.DB) (int64, error) {
	var billNos []string
	err := db.Model(&models.Bill{}).
		Where("bill_no LIKE ?", BillPrefix+"%").
		Order("LENGTH(bill_no) DESC").
		Order("bill_no DESC").
		Limit(1).
		Pluck("bill_no", &billNos).Error
	if err != nil {
		return 0, wrap("find highest bill number", err)
	}
	if len(billNos) == 0 {
		return 0, nil
	}
	// a hand-imported number like "NBX1" cannot be continued
	n, err := ParseBillNo(billNos[0])
	if err != nil {
		return 0, nil
	}
	return n, nil
}
