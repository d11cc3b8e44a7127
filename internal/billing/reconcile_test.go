package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-billing-pos/internal/models"
	"go-billing-pos/internal/testutil"
)

func TestDeriveUpdatedBill_PartialReturn(t *testing.T) {
	bill := &models.Bill{
		BillNo: "NB007",
		Client: models.Client{Name: "Ravi"},
		Items: []models.BillItem{
			{LineItem: models.LineItem{Category: "Electrical", Desc: "Wire", Qty: testutil.D("10"), Rate: testutil.D("5"), Amount: testutil.D("50")}},
			{LineItem: models.LineItem{Category: "Electrical", Desc: "Switch", Qty: testutil.D("2"), Rate: testutil.D("40"), Amount: testutil.D("80")}},
		},
	}
	ret := &models.ReturnBill{
		ReturnID: "RB007",
		Items: []models.ReturnItem{
			{LineItem: models.LineItem{Desc: "Wire", Qty: testutil.D("4")}},
			{LineItem: models.LineItem{Desc: "Switch", Qty: testutil.D("2")}},
			{LineItem: models.LineItem{Desc: "Bulb", Qty: testutil.D("9")}},
		},
	}

	ub, err := DeriveUpdatedBill(bill, ret, "2024-05-20")
	require.NoError(t, err)

	assert.Equal(t, "UB007", ub.UpdatedBillID)
	assert.Equal(t, "NB007", ub.OriginalBillNo)
	assert.Equal(t, "RB007", ub.ReturnID)
	assert.Equal(t, "2024-05-20", ub.Date)
	assert.Equal(t, "Ravi", ub.Client.Name)
	require.Len(t, ub.Items, 1)
	assert.Equal(t, "Wire", ub.Items[0].Desc)
	assert.True(t, ub.Items[0].Qty.Equal(testutil.D("6")))
	assert.True(t, ub.Items[0].Amount.Equal(testutil.D("30")))
	assert.Equal(t, models.Totals{SubTotal: "30.00", RoundOff: "0.00", NetAmount: "30.00"}, ub.Totals)
}

func TestReconcile_PartialReturn(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, line("Electrical", "Wire", "10", "5"))
	f.createReturn(t, bill.BillNo, line("Electrical", "Wire", "4", "5"))
	f.drain(t)

	ub := f.updatedBill(t, bill.BillNo)
	require.NotNil(t, ub)
	assert.Equal(t, models.KindUpdated, ub.Kind)
	assert.Equal(t, "UB001", ub.UpdatedBillID)
	assert.Equal(t, "RB001", ub.ReturnID)
	assert.Equal(t, "2024-05-15", ub.Date)
	require.Len(t, ub.Items, 1)
	assert.True(t, ub.Items[0].Qty.Equal(testutil.D("6")))
	assert.True(t, ub.Items[0].Amount.Equal(testutil.D("30")))
	assert.Equal(t, "30.00", ub.Totals.SubTotal)
	assert.Equal(t, "30.00", ub.Totals.NetAmount)
}

func TestReconcile_FullReturnKeepsEmptyUpdatedBill(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, line("", "Wire", "10", "5"), line("", "Switch", "1", "40"))
	f.createReturn(t, bill.BillNo, line("", "Wire", "10", "5"), line("", "Switch", "1", "40"))
	f.drain(t)

	ub := f.updatedBill(t, bill.BillNo)
	require.NotNil(t, ub)
	assert.Empty(t, ub.Items)
	assert.Equal(t, "0.00", ub.Totals.SubTotal)
	assert.Equal(t, "0.00", ub.Totals.NetAmount)
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, line("", "Wire", "10", "5"), line("", "Switch", "3", "40"))
	f.createReturn(t, bill.BillNo, line("", "Switch", "1", "40"))

	require.NoError(t, f.rec.Reconcile(f.ctx, bill.BillNo))
	first := f.updatedBill(t, bill.BillNo)
	require.NoError(t, f.rec.Reconcile(f.ctx, bill.BillNo))
	second := f.updatedBill(t, bill.BillNo)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, first.LineItems(), second.LineItems())

	var rows int64
	f.db.Model(&models.UpdatedBillItem{}).Count(&rows)
	assert.Equal(t, int64(2), rows, "items are replaced, not appended")

	// absence is stable too
	other := f.createBill(t, line("", "Wire", "1", "5"))
	require.NoError(t, f.rec.Reconcile(f.ctx, other.BillNo))
	require.NoError(t, f.rec.Reconcile(f.ctx, other.BillNo))
	assert.Nil(t, f.updatedBill(t, other.BillNo))
}

func TestReconcile_MissingParentDeletes(t *testing.T) {
	t.Run("bill deleted", func(t *testing.T) {
		f := newFixture(t)
		bill := f.createBill(t, line("", "Wire", "10", "5"))
		f.createReturn(t, bill.BillNo, line("", "Wire", "4", "5"))
		f.drain(t)
		require.NotNil(t, f.updatedBill(t, bill.BillNo))

		require.NoError(t, f.svc.DeleteBill(f.ctx, bill.BillNo))
		f.drain(t)

		assert.Nil(t, f.updatedBill(t, bill.BillNo))
		var rows int64
		f.db.Model(&models.UpdatedBillItem{}).Count(&rows)
		assert.Zero(t, rows)
	})

	t.Run("return deleted", func(t *testing.T) {
		f := newFixture(t)
		bill := f.createBill(t, line("", "Wire", "10", "5"))
		ret := f.createReturn(t, bill.BillNo, line("", "Wire", "4", "5"))
		f.drain(t)

		require.NoError(t, f.svc.DeleteReturn(f.ctx, ret.ReturnID))
		f.drain(t)

		assert.Nil(t, f.updatedBill(t, bill.BillNo))
	})

	t.Run("stale updated bill without return", func(t *testing.T) {
		f := newFixture(t)
		bill := f.createBill(t, line("", "Wire", "10", "5"))
		require.NoError(t, f.db.Create(&models.UpdatedBill{
			UpdatedBillID: "UB001", OriginalBillNo: bill.BillNo, ReturnID: "RB001", Date: "2024-05-01",
		}).Error)

		require.NoError(t, f.rec.Reconcile(f.ctx, bill.BillNo))
		assert.Nil(t, f.updatedBill(t, bill.BillNo))
	})
}

func TestReconcile_FollowsBillEdits(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t, line("", "Wire", "10", "5"))
	f.createReturn(t, bill.BillNo, line("", "Wire", "4", "5"))
	f.drain(t)

	_, err := f.svc.UpdateBill(f.ctx, bill.BillNo, BillInput{Items: []models.LineItem{line("", "Wire", "12", "6")}})
	require.NoError(t, err)
	f.drain(t)

	ub := f.updatedBill(t, bill.BillNo)
	require.NotNil(t, ub)
	require.Len(t, ub.Items, 1)
	assert.True(t, ub.Items[0].Qty.Equal(testutil.D("8")))
	assert.Equal(t, "48.00", ub.Totals.NetAmount)
}

func TestReconcile_UnparsableIsNoop(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.rec.Reconcile(f.ctx, "RB001"))
	assert.NoError(t, f.rec.Reconcile(f.ctx, "not-a-bill"))
}
