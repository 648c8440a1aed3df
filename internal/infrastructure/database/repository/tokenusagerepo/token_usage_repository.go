package tokenusagerepo

import (
	"context"
	"time"

	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/infrastructure/database/dbschema"
	"tutor-server/services/chat-api/internal/infrastructure/database/transaction"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

type TokenUsageGormRepository struct {
	db *transaction.Database
}

var _ tokenusage.Repository = (*TokenUsageGormRepository)(nil)

func NewTokenUsageGormRepository(db *transaction.Database) tokenusage.Repository {
	return &TokenUsageGormRepository{db: db}
}

// Create implements tokenusage.Repository.
func (repo *TokenUsageGormRepository) Create(ctx context.Context, usage *tokenusage.TokenUsage) error {
	entity := dbschema.NewSchemaTokenUsage(usage)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to create token usage row", err, "3a7d1b0e-6c2f-4d89-b4a7-1d8e0c5f3b69")
	}
	usage.ID = entity.ID
	usage.CreatedAt = entity.CreatedAt
	return nil
}

// GetUserSummaries implements tokenusage.Repository.
func (repo *TokenUsageGormRepository) GetUserSummaries(ctx context.Context, userID uint, startDate, endDate time.Time) ([]tokenusage.ModelSummary, error) {
	var summaries []tokenusage.ModelSummary
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.TokenUsage{}).
		Select(`model,
			SUM(prompt_tokens) AS total_prompt_tokens,
			SUM(completion_tokens) AS total_completion_tokens,
			SUM(total_tokens) AS total_tokens,
			COUNT(*) AS request_count,
			SUM(estimated_cost_usd) AS estimated_cost_usd`).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, startDate, endDate).
		Group("model").
		Scan(&summaries).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to aggregate usage by model", err, "4b8e2c1f-7d3a-4e90-c5b8-2e9f1d6a4c70")
	}
	return summaries, nil
}

// GetUserDailyAggregates implements tokenusage.Repository.
func (repo *TokenUsageGormRepository) GetUserDailyAggregates(ctx context.Context, userID uint, startDate, endDate time.Time) ([]tokenusage.DailyAggregate, error) {
	var aggregates []tokenusage.DailyAggregate
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.TokenUsage{}).
		Select(`DATE_TRUNC('day', created_at) AS date,
			SUM(prompt_tokens) AS total_prompt_tokens,
			SUM(completion_tokens) AS total_completion_tokens,
			SUM(total_tokens) AS total_tokens,
			COUNT(*) AS request_count,
			SUM(estimated_cost_usd) AS estimated_cost_usd`).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, startDate, endDate).
		Group("DATE_TRUNC('day', created_at)").
		Order("date ASC").
		Scan(&aggregates).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to aggregate usage by day", err, "5c9f3d2a-8e4b-4f01-d6c9-3f0a2e7b5d81")
	}
	return aggregates, nil
}
