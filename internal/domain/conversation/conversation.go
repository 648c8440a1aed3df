package conversation

import (
	"context"
	"html"
	"time"
	"unicode/utf8"
)

// DefaultTitle is the placeholder for conversations created without content.
const DefaultTitle = "Cuộc trò chuyện mới"

// TitleRuneLimit caps how much of the first user message becomes the title.
const TitleRuneLimit = 30

// MaxTitleLength caps explicit renames.
const MaxTitleLength = 200

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type MessageStatus string

const (
	// StatusPending marks an exchange still being generated. Transitions are
	// monotonic: pending → completed or pending → cancelled, never back.
	StatusPending   MessageStatus = "pending"
	StatusCompleted MessageStatus = "completed"
	StatusCancelled MessageStatus = "cancelled"
)

// Conversation is one chat thread owned by a user. total_tokens tracks the
// sum over all charged messages; soft deletion keeps the row restorable for
// a short grace window before the sweep hard-deletes it.
type Conversation struct {
	ID          uint
	PublicID    string
	UserID      uint
	Title       string
	TotalTokens int64
	IsDeleted   bool
	DeletedAt   *time.Time
	Messages    []Message
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one user or assistant turn. Token counts are authoritative only
// once the status leaves pending.
type Message struct {
	ID               uint
	PublicID         string
	ConversationID   uint
	Role             MessageRole
	Content          string
	Status           MessageStatus
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CreatedAt        time.Time
}

// TitleFromMessage derives a display title from the first user message:
// the first TitleRuneLimit runes, HTML-escaped, with an ellipsis marker when
// truncated.
func TitleFromMessage(message string) string {
	runes := []rune(message)
	title := message
	if utf8.RuneCountInString(message) > TitleRuneLimit {
		title = string(runes[:TitleRuneLimit])
	}
	escaped := html.EscapeString(title)
	if utf8.RuneCountInString(message) > TitleRuneLimit {
		escaped += "..."
	}
	return escaped
}

// Filter narrows repository lookups.
type Filter struct {
	ID        *uint
	PublicID  *string
	UserID    *uint
	IsDeleted *bool
}

// Repository defines storage operations for conversations and messages.
type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	FindByFilter(ctx context.Context, filter Filter) ([]*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error
	HardDelete(ctx context.Context, id uint) error
	// HardDeleteSoftDeletedBefore removes every conversation soft-deleted
	// before the cutoff, returning how many rows went away.
	HardDeleteSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	FindMessages(ctx context.Context, conversationID uint) ([]Message, error)
	FindMessageByPublicID(ctx context.Context, publicID string) (*Message, error)
	CreateMessage(ctx context.Context, msg *Message) error
	UpdateMessage(ctx context.Context, msg *Message) error
	DeleteMessage(ctx context.Context, id uint) error
}
