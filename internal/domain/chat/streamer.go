package chat

import (
	"context"

	"tutor-server/services/chat-api/internal/domain/prompt"
)

// CompletionRequest is one streaming completion call to the upstream model.
// Messages already include the system instruction first.
type CompletionRequest struct {
	Messages    []prompt.HistoryMessage
	Temperature float32
	MaxTokens   int
}

// Usage carries the cumulative token totals the upstream reports on its
// final chunk.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// StreamDelta is one element of a completion stream. Exactly one of the
// fields is meaningful per delta; a delta with Err set terminates the
// stream.
type StreamDelta struct {
	Content string
	Usage   *Usage
	Err     error
}

// Streamer produces completion streams. The returned channel is closed by
// the producer once the stream ends, after any Usage or Err delta.
type Streamer interface {
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan StreamDelta, error)
}
