package tokenusage

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenUsage is one ledger row, written after a stream finalizes.
type TokenUsage struct {
	ID               int64
	UserID           uint
	ConversationID   *uint
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD decimal.Decimal
	RequestID        string
	Stream           bool
	CreatedAt        time.Time
}

// ModelSummary is usage aggregated per upstream model.
type ModelSummary struct {
	Model                 string          `json:"model"`
	TotalPromptTokens     int64           `json:"total_prompt_tokens"`
	TotalCompletionTokens int64           `json:"total_completion_tokens"`
	TotalTokens           int64           `json:"total_tokens"`
	RequestCount          int64           `json:"request_count"`
	EstimatedCostUSD      decimal.Decimal `json:"estimated_cost_usd"`
}

// DailyAggregate is usage rolled up per calendar day.
type DailyAggregate struct {
	Date                  time.Time       `json:"date"`
	TotalPromptTokens     int64           `json:"total_prompt_tokens"`
	TotalCompletionTokens int64           `json:"total_completion_tokens"`
	TotalTokens           int64           `json:"total_tokens"`
	RequestCount          int64           `json:"request_count"`
	EstimatedCostUSD      decimal.Decimal `json:"estimated_cost_usd"`
}

// Period is the date range a usage query covered.
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Pricing in USD per token.
var ModelPricing = map[string]struct {
	PromptPrice     decimal.Decimal
	CompletionPrice decimal.Decimal
}{
	"deepseek-chat":     {decimal.NewFromFloat(0.00000027), decimal.NewFromFloat(0.0000011)},
	"deepseek-reasoner": {decimal.NewFromFloat(0.00000055), decimal.NewFromFloat(0.00000219)},
}

var defaultPricing = struct {
	PromptPrice     decimal.Decimal
	CompletionPrice decimal.Decimal
}{
	PromptPrice:     decimal.NewFromFloat(0.0000005),
	CompletionPrice: decimal.NewFromFloat(0.0000015),
}

// CalculateCost estimates the USD cost of one request.
func CalculateCost(model string, promptTokens, completionTokens int) decimal.Decimal {
	pricing, exists := ModelPricing[model]
	if !exists {
		pricing = defaultPricing
	}

	promptCost := pricing.PromptPrice.Mul(decimal.NewFromInt(int64(promptTokens)))
	completionCost := pricing.CompletionPrice.Mul(decimal.NewFromInt(int64(completionTokens)))
	return promptCost.Add(completionCost)
}
