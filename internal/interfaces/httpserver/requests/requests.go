package requests

// ChatRequest opens one streaming exchange. ConversationID empty means a new
// conversation; RetryMessageID re-runs an existing user message.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	RetryMessageID string `json:"retry_message_id"`
}

// RenameConversationRequest carries the new title.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// RestoreConversationRequest identifies the soft-deleted conversation.
type RestoreConversationRequest struct {
	ID string `json:"id" binding:"required"`
}

// FinalizeMessageRequest settles a message's terminal status.
type FinalizeMessageRequest struct {
	Status string `json:"status"`
}

// SpeakRequest asks for audio of one utterance.
type SpeakRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// UpdateVoicesRequest changes per-language voice preferences. Empty fields
// keep the current selection.
type UpdateVoicesRequest struct {
	Vietnamese string `json:"vi"`
	English    string `json:"en"`
}

// CreateVocabularyRequest saves a word to the notebook.
type CreateVocabularyRequest struct {
	Word string `json:"word"`
	Note string `json:"note"`
}

// UpdateVocabularyRequest edits a saved word. Nil fields are untouched.
type UpdateVocabularyRequest struct {
	Word *string `json:"word"`
	Note *string `json:"note"`
}
