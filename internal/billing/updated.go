package billing

import (
	"context"

	"go-billing-pos/internal/models"
)

func (s *Service) RecentUpdatedBills(ctx context.Context) ([]models.UpdatedBill, error) {
	return s.listUpdated(ctx, recentLimit)
}

func (s *Service) AllUpdatedBills(ctx context.Context) ([]models.UpdatedBill, error) {
	return s.listUpdated(ctx, 0)
}

func (s *Service) listUpdated(ctx context.Context, limit int) ([]models.UpdatedBill, error) {
	var bills []models.UpdatedBill
	q := s.db.WithContext(ctx).Preload("Items", orderByID).Order("updated_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&bills).Error; err != nil {
		return nil, wrap("list updated bills", err)
	}
	return bills, nil
}

// UpdatedBillFor returns the derived bill of billNo, or ErrNotFound.
func (s *Service) UpdatedBillFor(ctx context.Context, billNo string) (*models.UpdatedBill, error) {
	var bill models.UpdatedBill
	err := s.db.WithContext(ctx).
		Preload("Items", orderByID).
		Where("original_bill_no = ?", billNo).
		First(&bill).Error
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("updated bill", billNo)
		}
		return nil, wrap("load updated bill", err)
	}
	return &bill, nil
}
