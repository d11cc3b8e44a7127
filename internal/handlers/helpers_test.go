package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-billing-pos/internal/auth"
	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/testutil"
)

type testEnv struct {
	db      *gorm.DB
	svc     *billing.Service
	queue   *billing.ReconcileQueue
	router  *gin.Engine
	admin   string
	cashier string
}

type fakeAssistant struct {
	reply string
	err   error
	asked []string
}

func (f *fakeAssistant) Ask(_ context.Context, message string) (string, error) {
	f.asked = append(f.asked, message)
	return f.reply, f.err
}

func newTestEnv(t *testing.T, configure ...func(*Deps)) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	rec := billing.NewReconciler(db, log, time.Now)
	queue := billing.NewReconcileQueue(db, rec, billing.DefaultQueueConfig(), log)
	svc := billing.NewService(db, billing.NewLocalLocker(), log, billing.WithNotifier(queue))

	issuer, err := auth.NewTokenIssuer("handler-test-secret", time.Hour)
	require.NoError(t, err)

	deps := Deps{
		Service:     svc,
		Queue:       queue,
		Issuer:      issuer,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	for _, fn := range configure {
		fn(&deps)
	}

	router, err := NewRouter(deps, log)
	require.NoError(t, err)

	admin, err := issuer.GenerateToken(1, "owner", auth.RoleAdmin)
	require.NoError(t, err)
	cashier, err := issuer.GenerateToken(2, "counter", auth.RoleCashier)
	require.NoError(t, err)

	return &testEnv{db: db, svc: svc, queue: queue, router: router, admin: admin, cashier: cashier}
}

func (e *testEnv) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return testutil.PerformRequest(t, e.router, method, path, body, headers)
}

// drain runs the reconcile jobs left by the requests so far.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	_, err := e.queue.ProcessPending(context.Background())
	require.NoError(t, err)
}

func billBody(date string, items ...map[string]any) map[string]any {
	return map[string]any{
		"date":        date,
		"client":      map[string]any{"name": "Ravi", "mobile": "9000000000"},
		"items":       items,
		"totals":      map[string]any{"roundOff": "0"},
		"paymentMode": "Cash",
	}
}

func item(category, desc string, qty, rate float64) map[string]any {
	return map[string]any{"category": category, "desc": desc, "qty": qty, "unit": "piece", "rate": rate}
}

func (e *testEnv) saveBill(t *testing.T, body map[string]any) string {
	t.Helper()
	w := e.do(t, e.cashier, http.MethodPost, "/api/bills/save", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		BillNo string `json:"billNo"`
	}
	testutil.DecodeJSON(t, w, &resp)
	return resp.BillNo
}
