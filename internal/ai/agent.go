package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/config"
)

// maxToolRounds bounds how many times the model may call back into the shop per question.
const maxToolRounds = 5

// Agent answers shop questions with Gemini function calling. Tools only read data.
type Agent struct {
	apiKey string
	model  string
	tools  *toolbox
	log    *zap.Logger
}

func NewAgent(cfg config.AIConfig, svc *billing.Service, log *zap.Logger) (*Agent, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("ai: gemini api key is not set")
	}
	return &Agent{
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.Model,
		tools:  &toolbox{svc: svc, now: time.Now},
		log:    log.Named("ai"),
	}, nil
}

func (a *Agent) Ask(ctx context.Context, message string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(a.tools.systemPrompt()))
	model.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	// --- HANDLE TOOL CALLS ---
	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return replyText(resp), nil
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			a.log.Debug("Tool call", zap.String("tool", call.Name), zap.Any("args", call.Args))
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.tools.call(ctx, call.Name, call.Args),
			})
		}
		if resp, err = session.SendMessage(ctx, parts...); err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
	}
	return replyText(resp), nil
}

// --- DEFINE TOOLS ---
var declarations = []*genai.FunctionDeclaration{
	{
		Name:        "check_stock",
		Description: "Search the catalog by item name. Returns category, unit, price and quantity in stock of every match.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString, Description: "Full or partial item name"},
			},
			Required: []string{"name"},
		},
	},
	{
		Name:        "find_bill",
		Description: "Look up a bill by number (e.g. 7, NB007). Also returns its return and the updated bill after the return, if any.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"bill_no": {Type: genai.TypeString, Description: "Bill number"},
			},
			Required: []string{"bill_no"},
		},
	},
	{
		Name:        "get_sales_total",
		Description: "Net takings (bills minus returns) for an inclusive date range.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
				"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
			},
			Required: []string{"start_date", "end_date"},
		},
	},
}

// toolbox executes tool calls against the billing service.
type toolbox struct {
	svc *billing.Service
	now func() time.Time
}

func (t *toolbox) systemPrompt() string {
	return fmt.Sprintf(`Today is %s. You are the assistant of a retail shop's billing counter.

RULES:
1. STOCK: For price, unit or stock questions call 'check_stock' with the item name. Never guess numbers.
2. BILLS: For questions about a bill, call 'find_bill'. Bill numbers look like NB007; the return is RB007 and the updated bill UB007.
3. SALES: For takings over a day, week or month, work out the date range and call 'get_sales_total'.
4. You cannot change bills, returns or prices. Say so if asked.`, t.now().Format(billing.DateLayout))
}

// call runs one tool. Results travel as a JSON string since FunctionResponse only carries plain values.
func (t *toolbox) call(ctx context.Context, name string, args map[string]any) map[string]any {
	var (
		result any
		err    error
	)
	switch name {
	case "check_stock":
		result, err = t.svc.SearchItems(ctx, stringArg(args, "name"))
	case "find_bill":
		result, err = t.findBill(ctx, stringArg(args, "bill_no"))
	case "get_sales_total":
		result, err = t.salesTotal(ctx, stringArg(args, "start_date"), stringArg(args, "end_date"))
	default:
		err = fmt.Errorf("unknown tool %q", name)
	}
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"result": string(raw)}
}

func (t *toolbox) findBill(ctx context.Context, input string) (map[string]any, error) {
	bill, err := t.svc.FindBill(ctx, input)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"bill": bill}

	ret, err := t.svc.CheckReturn(ctx, bill.BillNo)
	if err != nil {
		return nil, err
	}
	if ret != nil {
		out["return"] = ret
		if updated, err := t.svc.UpdatedBillFor(ctx, bill.BillNo); err == nil {
			out["updatedBill"] = updated
		}
	}
	return out, nil
}

func (t *toolbox) salesTotal(ctx context.Context, from, to string) (*billing.PeriodTotal, error) {
	if _, err := time.Parse(billing.DateLayout, from); err != nil {
		return nil, fmt.Errorf("start_date must be YYYY-MM-DD, got %q", from)
	}
	if _, err := time.Parse(billing.DateLayout, to); err != nil {
		return nil, fmt.Errorf("end_date must be YYYY-MM-DD, got %q", to)
	}
	if from > to {
		from, to = to, from
	}
	return t.svc.PeriodTotal(ctx, billing.Period{From: from, To: to})
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].FunctionCalls()
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not find an answer."
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "I could not find an answer."
	}
	return sb.String()
}
