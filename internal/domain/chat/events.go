package chat

// Server-sent event payloads. Field names are part of the client contract.

type InitEvent struct {
	Type               string `json:"type"`
	AssistantMessageID string `json:"assistant_message_id"`
	ConversationID     string `json:"conversation_id"`
}

type ChunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type TokenCounts struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type DoneEvent struct {
	Type               string      `json:"type"`
	ConversationID     string      `json:"conversation_id"`
	MessageID          string      `json:"message_id"`
	AssistantMessageID string      `json:"assistant_message_id"`
	Tokens             TokenCounts `json:"tokens"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
