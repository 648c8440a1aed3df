package dbschema

import (
	"encoding/json"

	"gorm.io/datatypes"

	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(User{})
}

// User represents the persisted learner account.
type User struct {
	BaseModel
	ExternalID      string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Username        string         `gorm:"type:varchar(150)"`
	Email           string         `gorm:"type:varchar(320)"`
	TotalTokensUsed int64          `gorm:"not null;default:0"`
	TokenLimit      int64          `gorm:"not null;default:100000"`
	Voices          datatypes.JSON `gorm:"type:jsonb"`
}

// NewSchemaUser converts a domain user into a schema instance.
func NewSchemaUser(u *user.User) *User {
	if u == nil {
		return nil
	}

	voices, _ := json.Marshal(u.Voices)
	return &User{
		BaseModel: BaseModel{
			ID:        u.ID,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
		ExternalID:      u.ExternalID,
		Username:        u.Username,
		Email:           u.Email,
		TotalTokensUsed: u.TotalTokensUsed,
		TokenLimit:      u.TokenLimit,
		Voices:          voices,
	}
}

// EtoD converts a schema user back to the domain representation.
func (u *User) EtoD() *user.User {
	if u == nil {
		return nil
	}

	voices := speech.DefaultVoiceConfig()
	if len(u.Voices) > 0 {
		_ = json.Unmarshal(u.Voices, &voices)
	}
	return &user.User{
		ID:              u.ID,
		ExternalID:      u.ExternalID,
		Username:        u.Username,
		Email:           u.Email,
		TotalTokensUsed: u.TotalTokensUsed,
		TokenLimit:      u.TokenLimit,
		Voices:          voices,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
