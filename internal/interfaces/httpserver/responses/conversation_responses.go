package responses

import (
	"time"

	"tutor-server/services/chat-api/internal/domain/conversation"
)

// TokenCounts mirrors the per-message accounting block.
type TokenCounts struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// MessageResponse is one chat turn as returned to clients.
type MessageResponse struct {
	ID        string      `json:"id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Status    string      `json:"status"`
	Tokens    TokenCounts `json:"tokens"`
	CreatedAt string      `json:"created_at"`
}

// ConversationResponse is the conversation summary; Messages is populated
// only on the detail endpoint.
type ConversationResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	TotalTokens int64             `json:"total_tokens"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	Messages    []MessageResponse `json:"messages,omitempty"`
}

// ConversationListResponse wraps the conversation listing.
type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

func NewMessageResponse(m conversation.Message) MessageResponse {
	return MessageResponse{
		ID:      m.PublicID,
		Role:    string(m.Role),
		Content: m.Content,
		Status:  string(m.Status),
		Tokens: TokenCounts{
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			TotalTokens:      m.TotalTokens,
		},
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewConversationResponse(c *conversation.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:          c.PublicID,
		Title:       c.Title,
		TotalTokens: c.TotalTokens,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func NewConversationDetailResponse(c *conversation.Conversation) ConversationResponse {
	resp := NewConversationResponse(c)
	resp.Messages = make([]MessageResponse, 0, len(c.Messages))
	for _, m := range c.Messages {
		resp.Messages = append(resp.Messages, NewMessageResponse(m))
	}
	return resp
}

func NewConversationListResponse(convs []*conversation.Conversation) ConversationListResponse {
	items := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		items = append(items, NewConversationResponse(c))
	}
	return ConversationListResponse{Conversations: items}
}
