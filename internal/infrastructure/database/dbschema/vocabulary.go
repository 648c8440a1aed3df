package dbschema

import (
	"tutor-server/services/chat-api/internal/domain/vocabulary"
	"tutor-server/services/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Vocabulary{})
}

// Vocabulary is a saved word in a learner's notebook, unique per user+word.
type Vocabulary struct {
	BaseModel
	PublicID string `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID   uint   `gorm:"uniqueIndex:ux_vocabulary_user_word;not null"`
	User     User   `gorm:"foreignKey:UserID"`
	Word     string `gorm:"type:varchar(200);uniqueIndex:ux_vocabulary_user_word;not null"`
	Note     string `gorm:"type:text;not null;default:''"`
}

// NewSchemaVocabulary converts a domain vocabulary entry into a schema instance.
func NewSchemaVocabulary(v *vocabulary.Vocabulary) *Vocabulary {
	if v == nil {
		return nil
	}

	return &Vocabulary{
		BaseModel: BaseModel{
			ID:        v.ID,
			CreatedAt: v.CreatedAt,
		},
		PublicID: v.PublicID,
		UserID:   v.UserID,
		Word:     v.Word,
		Note:     v.Note,
	}
}

// EtoD converts a schema vocabulary entry back to the domain representation.
func (v *Vocabulary) EtoD() *vocabulary.Vocabulary {
	if v == nil {
		return nil
	}

	return &vocabulary.Vocabulary{
		ID:        v.ID,
		PublicID:  v.PublicID,
		UserID:    v.UserID,
		Word:      v.Word,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
	}
}
