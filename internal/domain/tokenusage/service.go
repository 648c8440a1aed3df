package tokenusage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// Service provides the usage ledger business logic.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordUsage stores one ledger row, filling in cost and total when the
// caller left them zero.
func (s *Service) RecordUsage(ctx context.Context, usage *TokenUsage) error {
	if usage.EstimatedCostUSD.IsZero() {
		usage.EstimatedCostUSD = CalculateCost(usage.Model, usage.PromptTokens, usage.CompletionTokens)
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if err := s.repo.Create(ctx, usage); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record token usage")
	}
	return nil
}

// UsageResponse is the payload for a user's own usage query.
type UsageResponse struct {
	Period     Period           `json:"period"`
	TotalUsage ModelSummary     `json:"total_usage"`
	ByModel    []ModelSummary   `json:"by_model"`
	Daily      []DailyAggregate `json:"daily"`
}

// GetMyUsage returns the caller's usage over a date range, totalled and
// broken down per model and per day.
func (s *Service) GetMyUsage(ctx context.Context, userID uint, startDate, endDate time.Time) (*UsageResponse, error) {
	summaries, err := s.repo.GetUserSummaries(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load usage summaries")
	}
	daily, err := s.repo.GetUserDailyAggregates(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load daily usage")
	}

	total := ModelSummary{EstimatedCostUSD: decimal.Zero}
	for _, summary := range summaries {
		total.TotalPromptTokens += summary.TotalPromptTokens
		total.TotalCompletionTokens += summary.TotalCompletionTokens
		total.TotalTokens += summary.TotalTokens
		total.RequestCount += summary.RequestCount
		total.EstimatedCostUSD = total.EstimatedCostUSD.Add(summary.EstimatedCostUSD)
	}

	if summaries == nil {
		summaries = []ModelSummary{}
	}
	if daily == nil {
		daily = []DailyAggregate{}
	}
	return &UsageResponse{
		Period:     Period{StartDate: startDate, EndDate: endDate},
		TotalUsage: total,
		ByModel:    summaries,
		Daily:      daily,
	}, nil
}
