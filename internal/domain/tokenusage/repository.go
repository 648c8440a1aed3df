package tokenusage

import (
	"context"
	"time"
)

// Repository defines the persistence surface for the usage ledger.
type Repository interface {
	// Create stores a new ledger row.
	Create(ctx context.Context, usage *TokenUsage) error

	// GetUserSummaries aggregates a user's usage per model within a range.
	GetUserSummaries(ctx context.Context, userID uint, startDate, endDate time.Time) ([]ModelSummary, error)

	// GetUserDailyAggregates rolls up a user's usage per day within a range.
	GetUserDailyAggregates(ctx context.Context, userID uint, startDate, endDate time.Time) ([]DailyAggregate, error)
}
