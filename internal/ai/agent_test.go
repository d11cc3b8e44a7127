package ai

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/config"
	"go-billing-pos/internal/models"
	"go-billing-pos/internal/testutil"
)

func newToolbox(t *testing.T) (*toolbox, *billing.Service) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := billing.NewService(db, billing.NewLocalLocker(), zap.NewNop())
	now := func() time.Time { return time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC) }
	return &toolbox{svc: svc, now: now}, svc
}

func decodeResult(t *testing.T, out map[string]any, v any) {
	t.Helper()
	raw, ok := out["result"].(string)
	require.True(t, ok, "tool failed: %v", out["error"])
	require.NoError(t, json.Unmarshal([]byte(raw), v))
}

func TestNewAgent_RequiresKey(t *testing.T) {
	_, err := NewAgent(config.AIConfig{Model: "gemini-2.0-flash-001"}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestToolbox_CheckStock(t *testing.T) {
	tb, svc := newToolbox(t)
	testutil.SeedItem(t, svc.DB(), "Electrical", "Copper Wire", "12", "5")

	out := tb.call(context.Background(), "check_stock", map[string]any{"name": "wire"})

	var matches []billing.ItemMatch
	decodeResult(t, out, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, "Electrical", matches[0].Category)
	assert.True(t, testutil.D("12").Equal(matches[0].Quantity))
}

func TestToolbox_FindBill(t *testing.T) {
	tb, svc := newToolbox(t)
	ctx := context.Background()
	_, err := svc.CreateBill(ctx, billing.BillInput{
		Date:  "2024-05-15",
		Items: []models.LineItem{{Desc: "Labour", Qty: testutil.D("2"), Rate: testutil.D("100")}},
	})
	require.NoError(t, err)

	out := tb.call(ctx, "find_bill", map[string]any{"bill_no": float64(1)})
	var found struct {
		Bill   models.Bill        `json:"bill"`
		Return *models.ReturnBill `json:"return"`
	}
	decodeResult(t, out, &found)
	assert.Equal(t, "NB001", found.Bill.BillNo)
	assert.Nil(t, found.Return)

	out = tb.call(ctx, "find_bill", map[string]any{"bill_no": "NB404"})
	assert.Contains(t, out["error"], "not found")
}

func TestToolbox_SalesTotal(t *testing.T) {
	tb, svc := newToolbox(t)
	ctx := context.Background()
	_, err := svc.CreateBill(ctx, billing.BillInput{
		Date:  "2024-05-15",
		Items: []models.LineItem{{Desc: "Labour", Qty: testutil.D("3"), Rate: testutil.D("50")}},
	})
	require.NoError(t, err)

	out := tb.call(ctx, "get_sales_total", map[string]any{"start_date": "2024-05-31", "end_date": "2024-05-01"})
	var total billing.PeriodTotal
	decodeResult(t, out, &total)
	assert.Equal(t, "2024-05-01", total.From)
	assert.True(t, testutil.D("150").Equal(total.Total))

	out = tb.call(ctx, "get_sales_total", map[string]any{"start_date": "May 1", "end_date": "2024-05-31"})
	assert.Contains(t, out["error"], "start_date")
}

func TestToolbox_UnknownTool(t *testing.T) {
	tb, _ := newToolbox(t)
	out := tb.call(context.Background(), "update_price", nil)
	assert.Contains(t, out["error"], "unknown tool")
}

func TestReplyText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("12 left"), genai.Text(" in stock")}},
	}}}
	assert.Equal(t, "12 left in stock", replyText(resp))
	assert.Equal(t, "I could not find an answer.", replyText(&genai.GenerateContentResponse{}))
	assert.Empty(t, functionCalls(nil))
}

func TestSystemPrompt_HasToday(t *testing.T) {
	tb, _ := newToolbox(t)
	assert.Contains(t, tb.systemPrompt(), "Today is 2024-05-15")
}
