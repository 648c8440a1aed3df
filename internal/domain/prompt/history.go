// Package prompt owns the tutor system prompt and the bounded-context
// history builder that prepares upstream completion requests.
package prompt

import (
	"slices"

	"tutor-server/services/chat-api/internal/utils/tokenestimate"
)

// HistoryMessage is one role/content pair of conversation history.
type HistoryMessage struct {
	Role    string
	Content string
}

// Builder assembles a bounded prompt context: the most recent messages that
// fit under the prompt-token budget together with the system prompt.
type Builder struct {
	systemPrompt    string
	maxHistory      int
	maxPromptTokens int
}

// NewBuilder returns a Builder for the given system prompt and limits.
func NewBuilder(systemPrompt string, maxHistory, maxPromptTokens int) *Builder {
	return &Builder{
		systemPrompt:    systemPrompt,
		maxHistory:      maxHistory,
		maxPromptTokens: maxPromptTokens,
	}
}

// SystemPrompt returns the system instruction this builder budgets against.
func (b *Builder) SystemPrompt() string {
	return b.systemPrompt
}

// Build trims history to the longest suffix that fits the budget. The input
// is capped to the most recent maxHistory messages first, then messages are
// accumulated newest to oldest on top of the system-prompt estimate; the
// first message that would overflow maxPromptTokens stops the walk. The
// result keeps chronological order.
func (b *Builder) Build(history []HistoryMessage) []HistoryMessage {
	if len(history) > b.maxHistory {
		history = history[len(history)-b.maxHistory:]
	}

	total := tokenestimate.Estimate(b.systemPrompt)
	trimmed := make([]HistoryMessage, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		msgTokens := tokenestimate.Estimate(history[i].Content)
		if total+msgTokens > b.maxPromptTokens {
			break
		}
		total += msgTokens
		trimmed = append(trimmed, history[i])
	}

	slices.Reverse(trimmed)
	return trimmed
}
