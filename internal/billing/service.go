package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-billing-pos/internal/models"
)

const (
	DefaultBillPaymentMode   = "Cash"
	DefaultReturnPaymentMode = "Credit"

	recentLimit = 6
)

// Notifier is told when committed work is waiting for the reconcile worker.
type Notifier interface {
	Notify()
}

// Service owns every document mutation. Each one runs in a single transaction under the catalog
// lock and enqueues the affected bill for reconciliation.
type Service struct {
	db     *gorm.DB
	locker Locker
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func NewService(db *gorm.DB, locker Locker, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		locker: locker,
		log:    log.Named("billing"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	return s
}

// DB exposes the handle for read-only report helpers.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// mutate runs fn in one transaction while holding the catalog lock, then wakes the worker.
func (s *Service) mutate(ctx context.Context, fn func(tx *gorm.DB) error) error {
	unlock, err := s.locker.Lock(ctx, CatalogLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.Notify()
	}
	return nil
}

// normalizeItems drops blank rows, enforces positive quantities and recomputes amounts.
func normalizeItems(items []models.LineItem) ([]models.LineItem, error) {
	out := make([]models.LineItem, 0, len(items))
	for i, it := range items {
		it.Desc = strings.TrimSpace(it.Desc)
		it.Category = strings.TrimSpace(it.Category)
		if it.Desc == "" {
			continue
		}
		if !it.Qty.IsPositive() {
			return nil, newError(ErrInvalidInput, "item %d (%s): quantity must be greater than zero", i+1, it.Desc)
		}
		if it.Rate.IsNegative() {
			return nil, newError(ErrInvalidInput, "item %d (%s): rate cannot be negative", i+1, it.Desc)
		}
		if it.Unit == "" {
			it.Unit = "piece"
		}
		it.Amount = it.Qty.Mul(it.Rate).Round(2)
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, newError(ErrInvalidInput, "at least one item is required")
	}
	return out, nil
}

// computeTotals fills in sub total and net amount from the line amounts and the round-off.
func computeTotals(items []models.LineItem, roundOff string) (models.Totals, error) {
	ro := decimal.Zero
	if strings.TrimSpace(roundOff) != "" {
		var err error
		ro, err = decimal.NewFromString(strings.TrimSpace(roundOff))
		if err != nil {
			return models.Totals{}, newError(ErrInvalidInput, "roundOff %q is not a number", roundOff)
		}
	}

	sub := decimal.Zero
	for _, it := range items {
		sub = sub.Add(it.Amount)
	}
	return models.Totals{
		SubTotal:  sub.StringFixed(2),
		RoundOff:  ro.StringFixed(2),
		NetAmount: sub.Add(ro).StringFixed(2),
	}, nil
}

func validateDate(field, value string) error {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return newError(ErrInvalidInput, "%s must be YYYY-MM-DD, got %q", field, value)
	}
	return nil
}

func notFound(kind, id string) error {
	return newError(ErrNotFound, "%s %s not found", kind, id)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
