package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-billing-pos/internal/models"
	"go-billing-pos/internal/testutil"
)

var fixedNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	rec   *Reconciler
	queue *ReconcileQueue
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	clock := func() time.Time { return fixedNow }
	rec := NewReconciler(db, zap.NewNop(), clock)
	queue := NewReconcileQueue(db, rec, QueueConfig{MaxAttempts: 2, RetryDelay: time.Second}, zap.NewNop())
	queue.now = clock
	svc := NewService(db, NewLocalLocker(), zap.NewNop(), WithClock(clock), WithNotifier(queue))

	return &fixture{db: db, svc: svc, rec: rec, queue: queue, ctx: context.Background()}
}

// drain runs every due reconcile job.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	_, err := f.queue.ProcessPending(f.ctx)
	require.NoError(t, err)
}

func line(category, desc, qty, rate string) models.LineItem {
	return models.LineItem{
		Category: category,
		Desc:     desc,
		Qty:      testutil.D(qty),
		Unit:     "piece",
		Rate:     testutil.D(rate),
	}
}

func (f *fixture) createBill(t *testing.T, items ...models.LineItem) *models.Bill {
	t.Helper()
	bill, err := f.svc.CreateBill(f.ctx, BillInput{
		Date:   "2024-05-15",
		Client: &models.Client{Name: "Ravi", Mobile: "9000000000"},
		Items:  items,
	})
	require.NoError(t, err)
	return bill
}

func (f *fixture) createReturn(t *testing.T, billNo string, items ...models.LineItem) *models.ReturnBill {
	t.Helper()
	ret, err := f.svc.CreateReturn(f.ctx, ReturnInput{
		OriginalBillNo: billNo,
		ReturnDate:     "2024-05-16",
		Items:          items,
	})
	require.NoError(t, err)
	return ret
}

func (f *fixture) updatedBill(t *testing.T, billNo string) *models.UpdatedBill {
	t.Helper()
	ub, err := f.svc.UpdatedBillFor(f.ctx, billNo)
	if err != nil {
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	}
	return ub
}
