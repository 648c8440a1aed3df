package responses

import (
	"tutor-server/services/chat-api/internal/domain/speech"
)

// VoicesResponse lists the synthesis catalog and the caller's selection.
type VoicesResponse struct {
	Voices  map[speech.Language][]speech.Voice `json:"voices"`
	Current speech.VoiceConfig                 `json:"current"`
}

// VoicesUpdateResponse confirms a preference change.
type VoicesUpdateResponse struct {
	Success bool               `json:"success"`
	Current speech.VoiceConfig `json:"current"`
}
