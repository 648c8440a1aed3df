package dbschema

import (
	"time"

	"github.com/shopspring/decimal"

	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(TokenUsage{})
}

// TokenUsage is one row of the usage ledger.
type TokenUsage struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	UserID           uint            `gorm:"not null;index"`
	ConversationID   *uint           `gorm:"index"`
	Model            string          `gorm:"type:varchar(100);not null;index"`
	PromptTokens     int             `gorm:"not null;default:0"`
	CompletionTokens int             `gorm:"not null;default:0"`
	TotalTokens      int             `gorm:"not null;default:0"`
	EstimatedCostUSD decimal.Decimal `gorm:"type:decimal(10,6)"`
	RequestID        string          `gorm:"type:varchar(100)"`
	Stream           bool            `gorm:"default:false"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index"`
}

func (TokenUsage) TableName() string {
	return "chat_api.token_usage"
}

// NewSchemaTokenUsage converts a domain ledger row into a schema instance.
func NewSchemaTokenUsage(u *tokenusage.TokenUsage) *TokenUsage {
	if u == nil {
		return nil
	}

	return &TokenUsage{
		ID:               u.ID,
		UserID:           u.UserID,
		ConversationID:   u.ConversationID,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		EstimatedCostUSD: u.EstimatedCostUSD,
		RequestID:        u.RequestID,
		Stream:           u.Stream,
		CreatedAt:        u.CreatedAt,
	}
}

// EtoD converts a schema ledger row back to the domain representation.
func (u *TokenUsage) EtoD() *tokenusage.TokenUsage {
	if u == nil {
		return nil
	}

	return &tokenusage.TokenUsage{
		ID:               u.ID,
		UserID:           u.UserID,
		ConversationID:   u.ConversationID,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		EstimatedCostUSD: u.EstimatedCostUSD,
		RequestID:        u.RequestID,
		Stream:           u.Stream,
		CreatedAt:        u.CreatedAt,
	}
}
