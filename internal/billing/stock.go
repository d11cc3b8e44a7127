package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-billing-pos/internal/models"
)

type stockKey struct {
	Category string
	Name     string
}

type stockLine struct {
	stockKey
	Qty decimal.Decimal
}

// stockLines keeps items that name both a category and a description and sums repeated
// rows, preserving first-seen order so errors name the first offending line.
func stockLines(items []models.LineItem) []stockLine {
	var lines []stockLine
	index := make(map[stockKey]int)
	for _, it := range items {
		if it.Category == "" || it.Desc == "" {
			continue
		}
		k := stockKey{Category: it.Category, Name: it.Desc}
		if i, ok := index[k]; ok {
			lines[i].Qty = lines[i].Qty.Add(it.Qty)
			continue
		}
		index[k] = len(lines)
		lines = append(lines, stockLine{stockKey: k, Qty: it.Qty})
	}
	return lines
}

// StockAdjuster applies bill and return lifecycle events to catalog quantities.
// It must run inside the transaction that writes the document.
type StockAdjuster struct {
	tx *gorm.DB
}

func NewStockAdjuster(tx *gorm.DB) *StockAdjuster {
	return &StockAdjuster{tx: tx}
}

// --- Bill events ---

func (s *StockAdjuster) BillCreated(items []models.LineItem) error {
	if err := s.validate(items, nil); err != nil {
		return err
	}
	return s.apply(items, -1)
}

// BillUpdated treats the old bill's quantities as still available while validating the edit,
// then restores all old quantities and deducts all new ones.
func (s *StockAdjuster) BillUpdated(oldItems, newItems []models.LineItem) error {
	if err := s.validate(newItems, oldItems); err != nil {
		return err
	}
	if err := s.apply(oldItems, 1); err != nil {
		return err
	}
	return s.apply(newItems, -1)
}

func (s *StockAdjuster) BillDeleted(items []models.LineItem) error {
	return s.apply(items, 1)
}

// --- Return events ---

func (s *StockAdjuster) ReturnCreated(items []models.LineItem) error {
	return s.apply(items, 1)
}

func (s *StockAdjuster) ReturnUpdated(oldItems, newItems []models.LineItem) error {
	if err := s.apply(oldItems, -1); err != nil {
		return err
	}
	return s.apply(newItems, 1)
}

func (s *StockAdjuster) ReturnDeleted(items []models.LineItem) error {
	return s.apply(items, -1)
}

// validate checks every requested line against catalog stock plus any credit (the quantities a
// bill being edited already holds). Nothing is written.
func (s *StockAdjuster) validate(items, credit []models.LineItem) error {
	held := make(map[stockKey]decimal.Decimal)
	for _, l := range stockLines(credit) {
		held[l.stockKey] = l.Qty
	}

	for _, l := range stockLines(items) {
		item, err := s.find(l.stockKey)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		available := item.Quantity.Add(held[l.stockKey])
		if l.Qty.GreaterThan(available) {
			return &StockError{
				Category:  l.Category,
				Item:      l.Name,
				Available: available,
				Requested: l.Qty,
			}
		}
	}
	return nil
}

func (s *StockAdjuster) apply(items []models.LineItem, sign int64) error {
	factor := decimal.NewFromInt(sign)
	for _, l := range stockLines(items) {
		item, err := s.find(l.stockKey)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		qty := item.Quantity.Add(l.Qty.Mul(factor))
		if err := s.tx.Model(&models.ProductItem{}).
			Where("id = ?", item.ID).
			Update("quantity", qty).Error; err != nil {
			return fmt.Errorf("adjust stock of %s/%s: %w", l.Category, l.Name, err)
		}
	}
	return nil
}

// find locks the catalog row for the rest of the transaction. A missing pair returns nil, nil.
func (s *StockAdjuster) find(k stockKey) (*models.ProductItem, error) {
	var product models.Product
	err := s.tx.Where("category = ?", k.Category).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", k.Category, err)
	}

	var item models.ProductItem
	err = s.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND name = ?", product.ID, k.Name).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load item %s/%s: %w", k.Category, k.Name, err)
	}
	return &item, nil
}
