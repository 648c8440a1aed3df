package tokenusage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memLedger struct {
	rows []TokenUsage
}

func (r *memLedger) Create(_ context.Context, usage *TokenUsage) error {
	usage.ID = int64(len(r.rows) + 1)
	usage.CreatedAt = time.Now()
	r.rows = append(r.rows, *usage)
	return nil
}

func (r *memLedger) GetUserSummaries(_ context.Context, userID uint, _, _ time.Time) ([]ModelSummary, error) {
	byModel := map[string]*ModelSummary{}
	var order []string
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		s, ok := byModel[row.Model]
		if !ok {
			s = &ModelSummary{Model: row.Model, EstimatedCostUSD: decimal.Zero}
			byModel[row.Model] = s
			order = append(order, row.Model)
		}
		s.TotalPromptTokens += int64(row.PromptTokens)
		s.TotalCompletionTokens += int64(row.CompletionTokens)
		s.TotalTokens += int64(row.TotalTokens)
		s.RequestCount++
		s.EstimatedCostUSD = s.EstimatedCostUSD.Add(row.EstimatedCostUSD)
	}
	var out []ModelSummary
	for _, m := range order {
		out = append(out, *byModel[m])
	}
	return out, nil
}

func (r *memLedger) GetUserDailyAggregates(_ context.Context, userID uint, _, _ time.Time) ([]DailyAggregate, error) {
	return nil, nil
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost("deepseek-chat", 1000000, 1000000)
	want := decimal.NewFromFloat(0.27 + 1.10)
	if !cost.Equal(want) {
		t.Errorf("deepseek-chat cost = %s, want %s", cost, want)
	}

	unknown := CalculateCost("mystery-model", 1000000, 0)
	if !unknown.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("unknown model cost = %s, want 0.5", unknown)
	}
}

func TestRecordUsageFillsDerivedFields(t *testing.T) {
	ledger := &memLedger{}
	svc := NewService(ledger)

	usage := &TokenUsage{UserID: 1, Model: "deepseek-chat", PromptTokens: 100, CompletionTokens: 40, Stream: true}
	if err := svc.RecordUsage(context.Background(), usage); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	row := ledger.rows[0]
	if row.TotalTokens != 140 {
		t.Errorf("total tokens = %d, want 140", row.TotalTokens)
	}
	if row.EstimatedCostUSD.IsZero() {
		t.Errorf("cost was not derived")
	}
	want := CalculateCost("deepseek-chat", 100, 40)
	if !row.EstimatedCostUSD.Equal(want) {
		t.Errorf("cost = %s, want %s", row.EstimatedCostUSD, want)
	}
}

func TestGetMyUsageTotals(t *testing.T) {
	ledger := &memLedger{}
	svc := NewService(ledger)
	ctx := context.Background()

	for _, row := range []*TokenUsage{
		{UserID: 1, Model: "deepseek-chat", PromptTokens: 100, CompletionTokens: 50},
		{UserID: 1, Model: "deepseek-chat", PromptTokens: 200, CompletionTokens: 80},
		{UserID: 1, Model: "deepseek-reasoner", PromptTokens: 10, CompletionTokens: 5},
		{UserID: 2, Model: "deepseek-chat", PromptTokens: 999, CompletionTokens: 999},
	} {
		if err := svc.RecordUsage(ctx, row); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}

	resp, err := svc.GetMyUsage(ctx, 1, time.Now().AddDate(0, -1, 0), time.Now())
	if err != nil {
		t.Fatalf("GetMyUsage: %v", err)
	}
	if resp.TotalUsage.TotalTokens != 445 {
		t.Errorf("total tokens = %d, want 445", resp.TotalUsage.TotalTokens)
	}
	if resp.TotalUsage.RequestCount != 3 {
		t.Errorf("request count = %d, want 3", resp.TotalUsage.RequestCount)
	}
	if len(resp.ByModel) != 2 {
		t.Errorf("by_model = %d entries, want 2", len(resp.ByModel))
	}
	if resp.Daily == nil {
		t.Errorf("daily must be an empty slice, not nil")
	}
}
