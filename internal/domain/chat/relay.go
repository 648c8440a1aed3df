package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/domain/conversation"
	"tutor-server/services/chat-api/internal/domain/prompt"
	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/domain/tokenusage"
	"tutor-server/services/chat-api/internal/domain/user"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
	"tutor-server/services/chat-api/internal/utils/tokenestimate"
)

const (
	// checkpointInterval is the content-chunk cadence at which partial
	// output is persisted while the stream is still running.
	checkpointInterval = 10

	temperature      = 0.7
	maxMessageLength = 5000

	genericStreamError = "Đã xảy ra lỗi khi xử lý yêu cầu"
)

// EmitFunc delivers one server-sent event to the client. An error means the
// client is gone; the relay keeps going without it.
type EmitFunc func(event any) error

// RunInput is one chat request.
type RunInput struct {
	ConversationID string
	Message        string
	RetryMessageID string
}

// Relay drives one streaming completion per request: it prepares the
// exchange rows, forwards content chunks to the client, checkpoints partial
// output, finalizes messages and totals, and hands the reply to the audio
// prefetcher.
type Relay struct {
	convs      *conversation.Service
	prompts    *prompt.Builder
	streamer   Streamer
	ledger     *tokenusage.Service
	speech     *speech.Service
	model      string
	maxTokens  int
	production bool
	log        zerolog.Logger
}

func NewRelay(convs *conversation.Service, prompts *prompt.Builder, streamer Streamer, ledger *tokenusage.Service, speechSvc *speech.Service, model string, maxCompletionTokens int, production bool, log zerolog.Logger) *Relay {
	return &Relay{
		convs:      convs,
		prompts:    prompts,
		streamer:   streamer,
		ledger:     ledger,
		speech:     speechSvc,
		model:      model,
		maxTokens:  maxCompletionTokens,
		production: production,
		log:        log,
	}
}

// Prepare validates the request and creates the exchange rows. Failures here
// happen before the SSE stream opens and map to plain HTTP errors.
func (r *Relay) Prepare(ctx context.Context, u *user.User, in RunInput) (*conversation.Exchange, error) {
	message := strings.TrimSpace(in.Message)
	if runes := []rune(message); len(runes) > maxMessageLength {
		message = string(runes[:maxMessageLength])
	}
	if message == "" && in.RetryMessageID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "Tin nhắn trống", nil, "e9c4a7f2-1b8d-4563-a0e9-7d2f5c8b3a16")
	}
	if !u.CanUseTokens(0) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "Bạn đã hết token. Vui lòng liên hệ admin để nâng cấp.", nil, "f3b8d1c6-9e2a-4074-b8f3-5a1d7e4c9b28")
	}
	return r.convs.StartExchange(ctx, u, in.ConversationID, message, in.RetryMessageID)
}

// Run streams one completion for a prepared exchange. Exactly one terminal
// event (done or error) is emitted, and the assistant message never stays
// pending. The client disconnecting stops delivery but not generation; the
// exchange still finalizes server-side.
func (r *Relay) Run(ctx context.Context, u *user.User, ex *conversation.Exchange, emit EmitFunc) {
	disconnected := false
	send := func(event any) {
		if disconnected {
			return
		}
		if err := emit(event); err != nil {
			disconnected = true
			r.log.Warn().Err(err).Str("conversation_id", ex.Conv.PublicID).Msg("client gone, continuing stream server-side")
		}
	}

	// Finalization must survive the request context.
	bgCtx := context.WithoutCancel(ctx)

	send(InitEvent{
		Type:               "init",
		AssistantMessageID: ex.AssistantMsg.PublicID,
		ConversationID:     ex.Conv.PublicID,
	})

	history, err := r.convs.HistoryFor(bgCtx, ex)
	if err != nil {
		r.fail(bgCtx, ex, "", err, send)
		return
	}
	trimmed := r.prompts.Build(history)

	messages := make([]prompt.HistoryMessage, 0, len(trimmed)+1)
	messages = append(messages, prompt.HistoryMessage{Role: "system", Content: r.prompts.SystemPrompt()})
	messages = append(messages, trimmed...)

	stream, err := r.streamer.StreamCompletion(bgCtx, CompletionRequest{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		r.fail(bgCtx, ex, "", err, send)
		return
	}

	var accumulated strings.Builder
	var promptTokens, completionTokens, chunkCount int
	for delta := range stream {
		if delta.Err != nil {
			r.fail(bgCtx, ex, accumulated.String(), delta.Err, send)
			return
		}
		if delta.Usage != nil {
			promptTokens = delta.Usage.PromptTokens
			completionTokens = delta.Usage.CompletionTokens
		}
		if delta.Content == "" {
			continue
		}

		accumulated.WriteString(delta.Content)
		chunkCount++
		send(ChunkEvent{Type: "chunk", Content: delta.Content})

		if chunkCount%checkpointInterval == 0 {
			if err := r.convs.CheckpointAssistant(bgCtx, ex, accumulated.String()); err != nil {
				r.log.Warn().Err(err).Str("message_id", ex.AssistantMsg.PublicID).Msg("checkpoint failed")
			}
		}
	}

	reply := accumulated.String()
	if promptTokens == 0 {
		contents := make([]string, 0, len(trimmed)+1)
		contents = append(contents, r.prompts.SystemPrompt())
		for _, m := range trimmed {
			contents = append(contents, m.Content)
		}
		promptTokens = tokenestimate.EstimateMessages(contents)
	}
	if completionTokens == 0 {
		completionTokens = tokenestimate.Estimate(reply)
	}
	totalTokens := promptTokens + completionTokens

	if err := r.convs.CompleteExchange(bgCtx, u, ex, reply, promptTokens, completionTokens); err != nil {
		r.fail(bgCtx, ex, reply, err, send)
		return
	}

	send(DoneEvent{
		Type:               "done",
		ConversationID:     ex.Conv.PublicID,
		MessageID:          ex.UserMsg.PublicID,
		AssistantMessageID: ex.AssistantMsg.PublicID,
		Tokens: TokenCounts{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
	})

	convID := ex.Conv.ID
	if err := r.ledger.RecordUsage(bgCtx, &tokenusage.TokenUsage{
		UserID:           u.ID,
		ConversationID:   &convID,
		Model:            r.model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
		Stream:           true,
	}); err != nil {
		r.log.Warn().Err(err).Uint("user_id", u.ID).Msg("usage ledger write failed")
	}

	r.speech.Prefetch(bgCtx, reply, u.Voices)
}

// fail settles the assistant row and emits the terminal error event.
// Accumulated text is preserved as cancelled; an empty stream's row is
// dropped outright. A row that already committed as completed is left
// alone: status transitions are one way.
func (r *Relay) fail(ctx context.Context, ex *conversation.Exchange, accumulated string, cause error, send func(any)) {
	switch {
	case ex.AssistantMsg.Status == conversation.StatusCompleted:
	case accumulated != "":
		if err := r.convs.CancelAssistant(ctx, ex, accumulated); err != nil {
			r.log.Error().Err(err).Str("message_id", ex.AssistantMsg.PublicID).Msg("failed to cancel assistant message")
		}
	default:
		if err := r.convs.DiscardAssistant(ctx, ex); err != nil {
			r.log.Error().Err(err).Str("message_id", ex.AssistantMsg.PublicID).Msg("failed to discard assistant message")
		}
	}

	platformerrors.LogError(r.log, platformerrors.AsError(ctx, platformerrors.LayerDomain, cause, "chat stream failed"))

	message := cause.Error()
	if r.production {
		message = genericStreamError
	}
	send(ErrorEvent{Type: "error", Error: message})
}
