package dbschema

import (
	"time"

	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
	database.RegisterSchemaForAutoMigrate(Message{})
}

// Conversation represents the database schema for conversations.
type Conversation struct {
	BaseModel
	PublicID    string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID      uint       `gorm:"index:idx_conversation_user_deleted;not null"`
	User        User       `gorm:"foreignKey:UserID"`
	Title       string     `gorm:"type:varchar(256);not null"`
	TotalTokens int64      `gorm:"not null;default:0"`
	IsDeleted   bool       `gorm:"index:idx_conversation_user_deleted;not null;default:false"`
	DeletedAt   *time.Time `gorm:"type:timestamp;index"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// Message represents the database schema for chat messages.
type Message struct {
	BaseModel
	PublicID         string `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID   uint   `gorm:"index:idx_message_conversation_status;not null"`
	Role             string `gorm:"type:varchar(20);not null"`
	Content          string `gorm:"type:text;not null"`
	Status           string `gorm:"type:varchar(20);index:idx_message_conversation_status;not null;default:'pending'"`
	PromptTokens     int    `gorm:"not null;default:0"`
	CompletionTokens int    `gorm:"not null;default:0"`
	TotalTokens      int    `gorm:"not null;default:0"`
}

// NewSchemaConversation converts a domain conversation into a schema instance.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	if c == nil {
		return nil
	}

	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID:    c.PublicID,
		UserID:      c.UserID,
		Title:       c.Title,
		TotalTokens: c.TotalTokens,
		IsDeleted:   c.IsDeleted,
		DeletedAt:   c.DeletedAt,
	}
}

// EtoD converts a schema conversation back to the domain representation.
func (c *Conversation) EtoD() *conversation.Conversation {
	if c == nil {
		return nil
	}

	return &conversation.Conversation{
		ID:          c.ID,
		PublicID:    c.PublicID,
		UserID:      c.UserID,
		Title:       c.Title,
		TotalTokens: c.TotalTokens,
		IsDeleted:   c.IsDeleted,
		DeletedAt:   c.DeletedAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// NewSchemaMessage converts a domain message into a schema instance.
func NewSchemaMessage(m *conversation.Message) *Message {
	if m == nil {
		return nil
	}

	return &Message{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		PublicID:         m.PublicID,
		ConversationID:   m.ConversationID,
		Role:             string(m.Role),
		Content:          m.Content,
		Status:           string(m.Status),
		PromptTokens:     m.PromptTokens,
		CompletionTokens: m.CompletionTokens,
		TotalTokens:      m.TotalTokens,
	}
}

// EtoD converts a schema message back to the domain representation.
func (m *Message) EtoD() *conversation.Message {
	if m == nil {
		return nil
	}

	return &conversation.Message{
		ID:               m.ID,
		PublicID:         m.PublicID,
		ConversationID:   m.ConversationID,
		Role:             conversation.MessageRole(m.Role),
		Content:          m.Content,
		Status:           conversation.MessageStatus(m.Status),
		PromptTokens:     m.PromptTokens,
		CompletionTokens: m.CompletionTokens,
		TotalTokens:      m.TotalTokens,
		CreatedAt:        m.CreatedAt,
	}
}
