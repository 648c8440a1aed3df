package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutor-server/services/chat-api/internal/config"
	"tutor-server/services/chat-api/internal/domain/chat"
	"tutor-server/services/chat-api/internal/infrastructure/metrics"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/requests"
	"tutor-server/services/chat-api/internal/interfaces/httpserver/responses"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// ChatHandler exposes the streaming chat endpoint.
type ChatHandler struct {
	cfg   *config.Config
	relay *chat.Relay
	log   zerolog.Logger
}

func NewChatHandler(cfg *config.Config, relay *chat.Relay, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		cfg:   cfg,
		relay: relay,
		log:   log.With().Str("component", "chat-handler").Logger(),
	}
}

// Stream runs one completion exchange over SSE. Validation and quota
// failures happen before the stream opens and come back as plain JSON
// errors; anything after the stream opens arrives as an SSE error event.
func (h *ChatHandler) Stream(c *gin.Context) {
	u, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "7d1f3a92-5c6e-4b80-9f27-e4a8d0c51b63")
		return
	}

	var req requests.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "c2a84f17-0d3b-4e95-b6c1-8f5a29d7e043")
		return
	}

	ex, err := h.relay.Prepare(c.Request.Context(), u, chat.RunInput{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		RetryMessageID: req.RetryMessageID,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to start chat")
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "streaming unsupported", "9b6e2d48-7a1c-4f30-8e5d-0c3f6a91b274")
		return
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	emit := func(event any) error {
		switch ev := event.(type) {
		case chat.ChunkEvent:
			metrics.StreamChunksTotal.Inc()
		case chat.DoneEvent:
			metrics.RecordStream("completed")
			metrics.RecordTokens(h.cfg.AIModel, ev.Tokens.PromptTokens, ev.Tokens.CompletionTokens)
		case chat.ErrorEvent:
			metrics.RecordStream("error")
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	h.relay.Run(c.Request.Context(), u, ex, emit)
}
