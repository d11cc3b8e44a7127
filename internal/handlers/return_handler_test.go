package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-billing-pos/internal/models"
	"go-billing-pos/internal/testutil"
)

func returnBody(billNo string, items ...map[string]any) map[string]any {
	return map[string]any{
		"originalBillNo": billNo,
		"returnDate":     "2024-05-16",
		"items":          items,
		"totals":         map[string]any{"roundOff": "0"},
	}
}

func TestReturnFlow(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedItem(t, env.db, "Electrical", "Wire", "20", "5")
	billNo := env.saveBill(t, billBody("2024-05-15", item("Electrical", "Wire", 10, 5)))

	// 1. file a partial return
	w := env.do(t, env.cashier, http.MethodPost, "/api/returns/save", returnBody("1", item("Electrical", "Wire", 4, 5)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		ReturnID string            `json:"returnId"`
		Return   models.ReturnBill `json:"return"`
	}
	testutil.DecodeJSON(t, w, &saved)
	assert.Equal(t, "RB001", saved.ReturnID)
	assert.Equal(t, billNo, saved.Return.OriginalBillNo)
	assert.Equal(t, "Ravi", saved.Return.Client.Name)
	assert.True(t, testutil.D("14").Equal(testutil.StockOf(t, env.db, "Electrical", "Wire")))

	// 2. the derived bill appears once the worker has run
	env.drain(t)
	w = env.do(t, env.cashier, http.MethodGet, "/api/updated", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var updated []models.UpdatedBill
	testutil.DecodeJSON(t, w, &updated)
	require.Len(t, updated, 1)
	assert.Equal(t, "UB001", updated[0].UpdatedBillID)
	assert.Equal(t, "30.00", updated[0].Totals.NetAmount)
	require.Len(t, updated[0].Items, 1)
	assert.True(t, testutil.D("6").Equal(updated[0].Items[0].Qty))

	w = env.do(t, env.cashier, http.MethodGet, "/api/updated/find/nb1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 3. a second return on the same bill is refused
	w = env.do(t, env.cashier, http.MethodPost, "/api/returns/save", returnBody(billNo, item("Electrical", "Wire", 1, 5)))
	assert.Equal(t, http.StatusConflict, w.Code)

	// 4. deleting the return takes the goods back out and drops the derived bill
	w = env.do(t, env.admin, http.MethodDelete, "/api/returns/delete/RB001", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, testutil.D("10").Equal(testutil.StockOf(t, env.db, "Electrical", "Wire")))

	env.drain(t)
	w = env.do(t, env.cashier, http.MethodGet, "/api/updated/all", nil)
	testutil.DecodeJSON(t, w, &updated)
	assert.Empty(t, updated)
}

func TestSaveReturn_Rejections(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedItem(t, env.db, "Electrical", "Wire", "20", "5")
	env.saveBill(t, billBody("2024-05-15", item("Electrical", "Wire", 2, 5)))

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"unknown bill", returnBody("NB404", item("Electrical", "Wire", 1, 5)), http.StatusNotFound, "NOT_FOUND"},
		{"more than sold", returnBody("NB001", item("Electrical", "Wire", 3, 5)), http.StatusBadRequest, "INVALID_RETURN"},
		{"item not on bill", returnBody("NB001", item("Electrical", "Switch", 1, 5)), http.StatusBadRequest, "INVALID_RETURN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, env.cashier, http.MethodPost, "/api/returns/save", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp map[string]string
			testutil.DecodeJSON(t, w, &resp)
			assert.Equal(t, tt.code, resp["code"])
		})
	}

	w := env.do(t, env.cashier, http.MethodPost, "/api/returns/save", map[string]any{"returnDate": "2024-05-16"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckReturnAndNextNumber(t *testing.T) {
	env := newTestEnv(t)
	env.saveBill(t, billBody("2024-05-15", item("", "Labour", 2, 100)))

	w := env.do(t, env.cashier, http.MethodGet, "/api/returns/check/NB001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		Exists     bool               `json:"exists"`
		ReturnBill *models.ReturnBill `json:"returnBill"`
	}
	testutil.DecodeJSON(t, w, &check)
	assert.False(t, check.Exists)
	assert.Nil(t, check.ReturnBill)

	w = env.do(t, env.cashier, http.MethodPost, "/api/returns/save", returnBody("NB001", item("", "Labour", 1, 100)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, env.cashier, http.MethodGet, "/api/returns/check/1", nil)
	testutil.DecodeJSON(t, w, &check)
	assert.True(t, check.Exists)
	require.NotNil(t, check.ReturnBill)
	assert.Equal(t, "RB001", check.ReturnBill.ReturnID)

	w = env.do(t, env.cashier, http.MethodGet, "/api/returns/next-number/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var next map[string]string
	testutil.DecodeJSON(t, w, &next)
	assert.Equal(t, "RB007", next["nextReturnId"])

	w = env.do(t, env.cashier, http.MethodGet, "/api/returns/next-number/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateReturn(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedItem(t, env.db, "Electrical", "Wire", "20", "5")
	env.saveBill(t, billBody("2024-05-15", item("Electrical", "Wire", 10, 5)))
	w := env.do(t, env.cashier, http.MethodPost, "/api/returns/save", returnBody("NB001", item("Electrical", "Wire", 4, 5)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, env.cashier, http.MethodPut, "/api/returns/update/RB001", map[string]any{
		"items": []map[string]any{item("Electrical", "Wire", 2, 5)},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, testutil.D("12").Equal(testutil.StockOf(t, env.db, "Electrical", "Wire")))

	env.drain(t)
	w = env.do(t, env.cashier, http.MethodGet, "/api/updated/find/NB001", nil)
	var updated models.UpdatedBill
	testutil.DecodeJSON(t, w, &updated)
	assert.Equal(t, "40.00", updated.Totals.NetAmount)

	w = env.do(t, env.cashier, http.MethodPut, "/api/returns/update/RB404", map[string]any{
		"items": []map[string]any{item("Electrical", "Wire", 1, 5)},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
